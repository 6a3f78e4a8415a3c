package polling

import "errors"

var (
	// ErrNilStore is returned when a registry is built without a store.
	ErrNilStore = errors.New("polling: nil store")
	// ErrNilFetcher is returned when entities are added for a kind with no fetcher.
	ErrNilFetcher = errors.New("polling: no fetcher for kind")
	// ErrInvalidID is returned when an entity id is missing, empty, or neither a string nor a number.
	ErrInvalidID = errors.New("polling: invalid entity id")
	// ErrInvalidParams is returned when query params cannot be encoded into a bucket key.
	ErrInvalidParams = errors.New("polling: invalid query params")
)
