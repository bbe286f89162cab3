package measure

import (
	"fmt"
	"strconv"
)

// ParseTenths parses a temperature of the form -?d?d.d into tenths of a
// degree, e.g. "23.5" is 235 and "-9.0" is -90. The position of every digit
// follows from the length of the input, so only lengths 3, 4 and 5 are
// accepted.
func ParseTenths(b []byte) (int16, error) {
	var neg bool
	switch len(b) {
	case 3:
		// d.d
	case 4:
		// -d.d or dd.d
		neg = b[0] == '-'
	case 5:
		// -dd.d
		if b[0] != '-' {
			return 0, malformedTemperature(b)
		}
		neg = true
	default:
		return 0, malformedTemperature(b)
	}
	if b[len(b)-2] != '.' {
		return 0, malformedTemperature(b)
	}
	digits := b[:len(b)-2]
	if neg {
		digits = digits[1:]
	}
	var v int16
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, malformedTemperature(b)
		}
		v = v*10 + int16(c-'0')
	}
	c := b[len(b)-1]
	if c < '0' || c > '9' {
		return 0, malformedTemperature(b)
	}
	v = v*10 + int16(c-'0')
	if neg {
		v = -v
	}
	return v, nil
}

func malformedTemperature(b []byte) error {
	return fmt.Errorf("%w: temperature %q", ErrMalformed, b)
}

// FormatTenths renders a value in tenths with exactly one fractional digit.
func FormatTenths(v int64) string {
	return string(appendTenths(nil, v))
}

func appendTenths(dst []byte, v int64) []byte {
	if v < 0 {
		dst = append(dst, '-')
		v = -v
	}
	dst = strconv.AppendInt(dst, v/10, 10)
	return append(dst, '.', byte('0'+v%10))
}
