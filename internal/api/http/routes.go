package apihttp

import (
	"log"
	"net/http"

	"der-explorer/internal/audit"
	"der-explorer/internal/store"
)

// Register mounts the API handlers on mux.
func Register(mux *http.ServeMux, tracker Tracker, reader store.Reader, auditLogger audit.Logger, logger *log.Logger) error {
	pollingHandler, err := NewPollingHandler(tracker, auditLogger, logger)
	if err != nil {
		return err
	}
	logoutHandler, err := NewLogoutHandler(tracker, auditLogger, logger)
	if err != nil {
		return err
	}
	entitiesHandler, err := NewEntitiesHandler(reader)
	if err != nil {
		return err
	}
	exportHandler := NewExportHandler(logger)

	mux.Handle("/api/v1/grids/summary", NewGridSummaryHandler())
	mux.Handle("/api/v1/intervals/ops", NewIntervalOpsHandler())
	mux.Handle("/api/v1/polling", pollingHandler)
	mux.Handle("/api/v1/polling/", pollingHandler)
	mux.Handle("/api/v1/entities/", entitiesHandler)
	mux.Handle("/api/v1/auth/logout", logoutHandler)
	mux.Handle("/api/v1/exports/", exportHandler)
	return nil
}
