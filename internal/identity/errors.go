package identity

import "errors"

var (
	// ErrNotFound indicates the login key or id does not resolve to a record.
	ErrNotFound = errors.New("identity: not found")
	// ErrConflict indicates the login key is already indexed.
	ErrConflict = errors.New("identity: login key already registered")
	// ErrIDCollision indicates a record already exists under the generated id.
	ErrIDCollision = errors.New("identity: id already in use")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("identity: store unavailable")
	// ErrCorruptRecord indicates a stored record could not be decoded.
	ErrCorruptRecord = errors.New("identity: corrupt record")
)
