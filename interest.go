package netpoll

import "strings"

// Interest is a non-empty set of transition kinds a caller wants to be
// notified about. The zero value is invalid for registration; use one of
// the constructors below and combine with Add.
type Interest uint8

const (
	interestReadable Interest = 1 << iota
	interestWritable
	interestPriority
	interestAIO
	interestLIO
)

// Readable requests notification when the source has data ready to read,
// a connection ready to accept, or has reached EOF.
func Readable() Interest { return interestReadable }

// Writable requests notification when the source is ready to accept a
// non-blocking write, or a pending connect has completed.
func Writable() Interest { return interestWritable }

// Priority requests notification of out-of-band or priority data. Back-ends
// without a distinct priority channel silently accept this interest but
// never deliver Event.IsPriority for it; see SPEC_FULL.md §7.
func Priority() Interest { return interestPriority }

// AIO requests notification of completed asynchronous I/O. No back-end
// implemented by this module delivers a distinct event for it; it is
// accepted for source compatibility with platforms that might.
func AIO() Interest { return interestAIO }

// LIO requests notification of completed list I/O. Like AIO, accepted but
// never distinctly delivered by any back-end here.
func LIO() Interest { return interestLIO }

// Add returns the union of i and other.
func (i Interest) Add(other Interest) Interest { return i | other }

// Remove returns i with other's bits cleared.
func (i Interest) Remove(other Interest) Interest { return i &^ other }

// IsEmpty reports whether the set has no bits at all. Registering an empty
// Interest fails with ErrInvalidArgument.
func (i Interest) IsEmpty() bool { return i == 0 }

// IsReadable reports whether Readable is present.
func (i Interest) IsReadable() bool { return i&interestReadable != 0 }

// IsWritable reports whether Writable is present.
func (i Interest) IsWritable() bool { return i&interestWritable != 0 }

// IsPriority reports whether Priority is present.
func (i Interest) IsPriority() bool { return i&interestPriority != 0 }

// IsAIO reports whether AIO is present.
func (i Interest) IsAIO() bool { return i&interestAIO != 0 }

// IsLIO reports whether LIO is present.
func (i Interest) IsLIO() bool { return i&interestLIO != 0 }

// String renders the set as a pipe-joined list of flag names, e.g.
// "READABLE|WRITABLE", matching the debug rendering the original Rust
// implementation's interests.rs produced for its bitflags type.
func (i Interest) String() string {
	if i.IsEmpty() {
		return "(empty)"
	}
	var parts []string
	if i.IsReadable() {
		parts = append(parts, "READABLE")
	}
	if i.IsWritable() {
		parts = append(parts, "WRITABLE")
	}
	if i.IsPriority() {
		parts = append(parts, "PRIORITY")
	}
	if i.IsAIO() {
		parts = append(parts, "AIO")
	}
	if i.IsLIO() {
		parts = append(parts, "LIO")
	}
	return strings.Join(parts, "|")
}
