// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist or has expired.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates an identical record already exists.
var ErrConflict = errors.New("conflict: identical record already exists")

// ErrValidation indicates a request failed input validation.
var ErrValidation = errors.New("validation failed")

// ErrDataFormat indicates a persisted or fetched record could not be interpreted.
var ErrDataFormat = errors.New("malformed data")

// ErrStoreUnavailable indicates the event store could not be reached.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrCacheUnavailable indicates the result cache could not be reached.
var ErrCacheUnavailable = errors.New("cache unavailable")
