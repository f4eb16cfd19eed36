// Package hlc implements the HLC Allocator (HA): a hybrid logical clock
// that blends wall-clock coarse time with a per-transaction counter
// (spec §4.3).
//
// The bit layout follows original_source/src/hlc.rs, the reference
// implementation this package's spec was distilled from: the high 48
// bits hold a coarse time component (nanoseconds since the Unix epoch,
// masked to multiples of 0x10000) and the low 16 bits hold a counter.
// Next advances by recomputing the time component; if it moved forward,
// the timestamp becomes (new_time, 0), otherwise the raw 64-bit value is
// incremented by one — letting a counter overflow carry into the time
// component through ordinary integer addition.
//
// Allocator is not goroutine-safe. Like clock.Clock in the teacher
// repo this package was adapted from, each instance is owned exclusively
// by the replica that created it; cross-replica coordination happens
// through the wire protocol, not a shared clock.
package hlc

import (
	"errors"
	"time"
)

const (
	timeMask    = ^uint64(0xFFFF)
	counterMask = uint64(0xFFFF)
)

// ErrClockRegression is returned by Next when the persisted last-issued
// timestamp is implausibly far ahead of the current wall clock,
// suggesting corrupted state rather than ordinary clock skew.
var ErrClockRegression = errors.New("hlc: persisted state is implausibly ahead of wall clock")

// regressionBound is the "10 years" bound spec.md §7 suggests for
// ClockRegression: if the wall clock's time component sits this far
// behind the persisted high-water mark, something is wrong with the
// persisted state rather than the clock.
const regressionBound = uint64(10 * 365 * 24 * time.Hour)

// HLC is a 64-bit hybrid logical clock value.
type HLC uint64

// New packs a time component l and counter c into an HLC. l is masked to
// a multiple of 0x10000; only the low 16 bits of c are kept.
func New(l uint64, c uint16) HLC {
	return HLC((l & timeMask) | (uint64(c) & counterMask))
}

// Time returns the coarse wall-clock component.
func (h HLC) Time() uint64 { return uint64(h) & timeMask }

// Counter returns the per-instant counter.
func (h HLC) Counter() uint16 { return uint16(uint64(h) & counterMask) }

// Uint64 returns the packed 64-bit representation.
func (h HLC) Uint64() uint64 { return uint64(h) }

// FromUint64 unpacks a previously packed value.
func FromUint64(v uint64) HLC { return HLC(v) }

// Allocator issues strictly monotonically increasing HLCs for the local
// peer, even across restarts and even if the wall clock moves backward
// (spec §3, §4.3).
type Allocator struct {
	last HLC
	now  func() uint64 // overridable for tests
}

// NewAllocator seeds an allocator from a persisted last-issued value (0
// if the replica has never issued one before).
func NewAllocator(seed uint64) *Allocator {
	return &Allocator{last: HLC(seed), now: wallNanos}
}

// LastIssued returns the most recently issued value without allocating a
// new one. The replica does not persist this value; on reopen it seeds a
// new Allocator from the maximum of its own persisted ClockSet.
func (a *Allocator) LastIssued() uint64 {
	return a.last.Uint64()
}

// Next allocates a single HLC. Equivalent to NextBatch(1).
func (a *Allocator) Next() (uint64, error) {
	pt := a.now() & timeMask
	if a.last.Time() > 0 && pt+regressionBound < a.last.Time() {
		return 0, ErrClockRegression
	}

	l := max(a.last.Time(), pt)
	var next HLC
	if l == a.last.Time() {
		next = a.last + 1
	} else {
		next = New(l, 0)
	}
	a.last = next
	return next.Uint64(), nil
}

// NextBatch allocates n HLCs for a transaction in one step and returns
// the first. The batch shares one coarse time component and occupies a
// contiguous run of counter values (base, base+1, ..., base+n-1) — spec
// §4.3's next_batch, and the reason S5's 10000-write transaction leaves
// behind a CS with cardinality 10000 that still compresses to a single
// run container. Reserving the whole range up front, rather than
// calling Next n times, keeps every write in the transaction pinned to
// the same instant even if the wall clock ticks forward mid-commit.
func (a *Allocator) NextBatch(n int) (uint64, error) {
	if n <= 0 {
		n = 1
	}
	pt := a.now() & timeMask
	if a.last.Time() > 0 && pt+regressionBound < a.last.Time() {
		return 0, ErrClockRegression
	}

	l := max(a.last.Time(), pt)
	var base HLC
	if l == a.last.Time() {
		base = a.last + 1
	} else {
		base = New(l, 0)
	}

	a.last = base + HLC(n-1)
	return base.Uint64(), nil
}

func wallNanos() uint64 {
	return uint64(time.Now().UnixNano())
}
