package record

import (
	"time"

	"fluxproc/internal/errs"
)

// Converter turns a non-NULL column value into T.
type Converter[T any] func(value any) (T, error)

// ReadObject returns the raw value of column. It fails when r is nil or
// closed, or when column is empty.
func ReadObject(r Reader, column string) (any, error) {
	if r == nil {
		return nil, errs.Argument("reader", "reader must not be nil")
	}
	if row, ok := r.(*Row); ok && row == nil {
		return nil, errs.Argument("reader", "reader must not be nil")
	}
	if column == "" {
		return nil, errs.Argument("column", "column name must not be empty")
	}
	if r.IsClosed() {
		return nil, errs.Argument("reader", "reader is closed")
	}
	return r.Value(column)
}

// ReadValue reads a non-nullable column and converts it. Reading NULL is a
// state error.
func ReadValue[T any](r Reader, column string, convert Converter[T]) (T, error) {
	var zero T
	if convert == nil {
		return zero, errs.Argument("convert", "value converter must not be nil")
	}
	v, err := ReadObject(r, column)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, errs.State("attempted to read non-nullable value from null column '%s'", column)
	}
	return convert(v)
}

// ReadNullable reads a nullable column. NULL yields a nil pointer.
func ReadNullable[T any](r Reader, column string, convert Converter[T]) (*T, error) {
	if convert == nil {
		return nil, errs.Argument("convert", "value converter must not be nil")
	}
	v, err := ReadObject(r, column)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	out, err := convert(v)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadInt16 reads column as an int16.
func ReadInt16(r Reader, column string) (int16, error) {
	return ReadValue[int16](r, column, ToInt16)
}

// ReadInt16Nullable reads column as an int16, returning nil for NULL.
func ReadInt16Nullable(r Reader, column string) (*int16, error) {
	return ReadNullable[int16](r, column, ToInt16)
}

// ReadInt32 reads column as an int32.
func ReadInt32(r Reader, column string) (int32, error) {
	return ReadValue[int32](r, column, ToInt32)
}

// ReadInt32Nullable reads column as an int32, returning nil for NULL.
func ReadInt32Nullable(r Reader, column string) (*int32, error) {
	return ReadNullable[int32](r, column, ToInt32)
}

// ReadInt64 reads column as an int64.
func ReadInt64(r Reader, column string) (int64, error) {
	return ReadValue[int64](r, column, ToInt64)
}

// ReadInt64Nullable reads column as an int64, returning nil for NULL.
func ReadInt64Nullable(r Reader, column string) (*int64, error) {
	return ReadNullable[int64](r, column, ToInt64)
}

// ReadString reads column as a string.
func ReadString(r Reader, column string) (string, error) {
	return ReadValue[string](r, column, ToString)
}

// ReadStringNullable reads column as a string, returning nil for NULL.
func ReadStringNullable(r Reader, column string) (*string, error) {
	return ReadNullable[string](r, column, ToString)
}

// ReadDateTime reads column as a time.Time.
func ReadDateTime(r Reader, column string) (time.Time, error) {
	return ReadValue[time.Time](r, column, ToTime)
}

// ReadDateTimeNullable reads column as a time.Time, returning nil for NULL.
func ReadDateTimeNullable(r Reader, column string) (*time.Time, error) {
	return ReadNullable[time.Time](r, column, ToTime)
}
