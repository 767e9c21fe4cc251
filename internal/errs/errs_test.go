package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgumentErrorMatchesByType(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Argument("column", "must not be empty"))

	assert.True(t, errors.Is(err, &ArgumentError{}))
	assert.False(t, errors.Is(err, &StateError{}))

	var argErr *ArgumentError
	if assert.True(t, errors.As(err, &argErr)) {
		assert.Equal(t, "column", argErr.Name)
	}
	assert.Equal(t, `wrapped: invalid argument "column": must not be empty`, err.Error())
}

func TestStateErrorMatchesByType(t *testing.T) {
	err := State("no transaction in progress on %s", "mysql")

	assert.True(t, errors.Is(err, &StateError{}))
	assert.False(t, errors.Is(err, &ArgumentError{}))
	assert.Equal(t, "no transaction in progress on mysql", err.Error())
}
