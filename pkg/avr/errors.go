package avr

import (
	"errors"
	"fmt"
)

// VerificationError reports flash contents that differ from the image after
// programming. The chip is left partially programmed.
type VerificationError struct {
	Offset   int    // image offset of the page that failed
	Mismatch int    // image offset of the first differing byte
	Expected []byte // page bytes from the image
	Actual   []byte // page bytes read back from the device
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed at offset %d (first difference at %d): wrote % X, read % X",
		e.Offset, e.Mismatch, e.Expected, e.Actual)
}

func firstDifference(a, b []byte) int {
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// FuseValueError reports a fuse argument outside its bit width.
type FuseValueError struct {
	Field string
	Value int
	Bits  int
}

func (e *FuseValueError) Error() string {
	return fmt.Sprintf("%s value %d out of range: must fit in %d bits", e.Field, e.Value, e.Bits)
}

// ErrPollLimit is returned when a write-complete poll exceeds the limit set
// with WithPollLimit.
var ErrPollLimit = errors.New("avr: write did not complete within poll limit")
