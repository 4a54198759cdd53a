package ports

import "time"

// Clock is satisfied by clockwork.Clock; tests pass a fake one.
type Clock interface {
	Now() time.Time
}
