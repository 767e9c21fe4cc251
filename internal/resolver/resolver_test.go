package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeResolver(t *testing.T) {
	r := DateTimeResolver()

	got, ok := r.Resolve(time.Now())
	assert.False(t, ok, "current time should keep the default mapping")
	assert.Equal(t, Unspecified, got)

	got, ok = r.Resolve(time.Time{})
	require.True(t, ok, "zero time is before the DATETIME range")
	assert.Equal(t, DateTime2, got)

	got, ok = r.Resolve(MinDateTime)
	assert.False(t, ok)
	assert.Equal(t, Unspecified, got)

	_, ok = r.Resolve("not a time")
	assert.False(t, ok)
}

func TestDateTimeResolverUsesWallClock(t *testing.T) {
	r := DateTimeResolver()
	east := time.FixedZone("UTC+1", 60*60)
	west := time.FixedZone("UTC-1", -60*60)

	_, ok := r.Resolve(time.Date(1753, time.January, 1, 0, 30, 0, 0, east))
	assert.False(t, ok, "1753-01-01 00:30 local fits DATETIME")

	got, ok := r.Resolve(time.Date(1752, time.December, 31, 23, 30, 0, 0, west))
	require.True(t, ok, "1752-12-31 23:30 local is before DATETIME")
	assert.Equal(t, DateTime2, got)
}

type customTime time.Time

func TestRegistryExactTypeMatch(t *testing.T) {
	reg := Builtin()

	_, ok := reg.Resolve(nil)
	assert.False(t, ok)

	_, ok = reg.Resolve(customTime(time.Time{}))
	assert.False(t, ok, "named types over time.Time are not matched")

	_, ok = reg.Resolve(&time.Time{})
	assert.False(t, ok, "pointers are not dereferenced")

	got, ok := reg.Resolve(time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, DateTime2, got)
}

func TestRegistryFirstMatchWins(t *testing.T) {
	reg := NewRegistry(
		Typed(func(s string) (DBType, bool) { return AnsiString, true }),
		Typed(func(s string) (DBType, bool) { return String, true }),
		nil,
	)

	got, ok := reg.Resolve("abc")
	require.True(t, ok)
	assert.Equal(t, AnsiString, got)
	assert.Len(t, reg.Resolvers(), 2)

	_, ok = reg.Resolve(42)
	assert.False(t, ok)

	var empty *Registry
	_, ok = empty.Resolve("abc")
	assert.False(t, ok)
}

func TestParseDBType(t *testing.T) {
	for _, name := range []string{"DateTime2", "datetime2", " DATETIME2 "} {
		got, err := ParseDBType(name)
		require.NoError(t, err)
		assert.Equal(t, DateTime2, got)
	}

	_, err := ParseDBType("Varchar")
	assert.Error(t, err)

	assert.Equal(t, "Int32", Int32.String())
	assert.Equal(t, "DBType(99)", DBType(99).String())
}
