package ftdi

import "fmt"

// baseClock is the 48 MHz reference divided by 16.
const baseClock = 3000000

// fracCode maps the eighths of a divisor to the three fractional bits
// expected by the SET_BAUD_RATE request.
var fracCode = [8]uint32{0, 3, 2, 4, 1, 5, 6, 7}

// baudDivisor encodes the divisor for rate as the value and index fields of
// the SET_BAUD_RATE request and reports the rate actually produced.
func baudDivisor(rate int) (value, index uint16, actual int, err error) {
	if rate <= 0 {
		return 0, 0, 0, fmt.Errorf("ftdi: invalid baud rate %d", rate)
	}

	var encoded uint32
	switch {
	case rate >= baseClock:
		encoded, actual = 0, baseClock
	case rate >= baseClock*2/3:
		encoded, actual = 1, baseClock*2/3
	default:
		// Divisor in eighths, rounded to nearest.
		div8 := (baseClock*8 + rate/2) / rate
		if div8 < 16 {
			div8 = 16
		}
		if div8 > 0x1FFFF {
			return 0, 0, 0, fmt.Errorf("ftdi: baud rate %d too low", rate)
		}
		encoded = uint32(div8>>3) | fracCode[div8&7]<<14
		actual = (baseClock*8 + div8/2) / div8
	}
	return uint16(encoded), uint16(encoded >> 16), actual, nil
}
