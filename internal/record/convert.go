package record

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// ErrOutOfRange is returned when a value does not fit the requested integer type.
var ErrOutOfRange = errors.New("value out of range")

// Drivers hand back text columns (and, for MySQL's text protocol, numbers) as
// []byte. cast works on strings, so byte slices are normalized first.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// ToInt16 converts v to an int16, failing when it is out of range.
func ToInt16(v any) (int16, error) {
	n, err := toInt(v, math.MinInt16, math.MaxInt16, "Int16")
	return int16(n), err
}

// ToInt32 converts v to an int32, failing when it is out of range.
func ToInt32(v any) (int32, error) {
	n, err := toInt(v, math.MinInt32, math.MaxInt32, "Int32")
	return int32(n), err
}

// ToInt64 converts v to an int64, failing when it is out of range.
func ToInt64(v any) (int64, error) {
	return toInt(v, math.MinInt64, math.MaxInt64, "Int64")
}

// toInt converts v and checks it against [lo, hi]. Floating point values are
// rounded half to even; text must hold an integer.
func toInt(v any, lo, hi int64, kind string) (int64, error) {
	v = normalize(v)
	switch x := v.(type) {
	case float32, float64:
		f := cast.ToFloat64(x)
		r := math.RoundToEven(f)
		if math.IsNaN(r) || r < float64(lo) || r >= float64(hi)+1 {
			return 0, fmt.Errorf("%w: %v does not fit %s", ErrOutOfRange, v, kind)
		}
		return int64(r), nil
	case uint:
		if uint64(x) > uint64(hi) {
			return 0, fmt.Errorf("%w: %v does not fit %s", ErrOutOfRange, v, kind)
		}
		return int64(x), nil
	case uint64:
		if x > uint64(hi) {
			return 0, fmt.Errorf("%w: %v does not fit %s", ErrOutOfRange, v, kind)
		}
		return int64(x), nil
	}

	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: %v does not fit %s", ErrOutOfRange, v, kind)
	}
	return n, nil
}

// ToString converts v to its textual form.
func ToString(v any) (string, error) { return cast.ToStringE(normalize(v)) }

// ToTime converts time.Time values and the textual date/time layouts drivers
// produce when time parsing is disabled.
func ToTime(v any) (time.Time, error) { return cast.ToTimeE(normalize(v)) }
