package replica

import (
	"errors"

	"github.com/hlckv/hlckv/internal/hlc"
)

// Error kinds per spec §7. Overwrite-policy rejections are deliberately
// not among them: a rejected write or a dropped op is a normal (false,
// nil) return, not an error.
var (
	// ErrMalformedState is returned when a CS, DiffRequest, DiffResponse,
	// or Op failed to deserialize, or when persisted backend state
	// cannot be reconciled into a consistent replica on Open.
	ErrMalformedState = errors.New("replica: malformed state")

	// ErrUnknownPeer is returned when an operation references a peer
	// handle with no corresponding PeerId, which should only happen if
	// persisted state was tampered with or truncated.
	ErrUnknownPeer = errors.New("replica: unknown peer")

	// ErrTxnInProgress is returned when a caller attempts a write that
	// conflicts with the replica's current transaction state: issuing a
	// convenience Insert or a second Begin while a transaction is
	// already open, or Stage/Commit/Abort when none is.
	ErrTxnInProgress = errors.New("replica: transaction in progress")

	// ErrClockRegression is hlc.ErrClockRegression, re-exported so
	// callers need only import this package's error set.
	ErrClockRegression = hlc.ErrClockRegression

	// ErrBackendFailure is the sentinel errors.Is matches against when
	// the persistence backend reports an error; the returned error's
	// message carries the backend's original text.
	ErrBackendFailure = errors.New("replica: backend failure")
)
