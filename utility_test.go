// FILE: utility_test.go
package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelay(t *testing.T) {
	base := 200 * time.Millisecond
	max := 5 * time.Second

	assert.Equal(t, 200*time.Millisecond, backoffDelay(base, max, 0))
	assert.Equal(t, 400*time.Millisecond, backoffDelay(base, max, 1))
	assert.Equal(t, 800*time.Millisecond, backoffDelay(base, max, 2))
	assert.Equal(t, 3200*time.Millisecond, backoffDelay(base, max, 4))

	// Capped at the ceiling, no matter how late the attempt
	assert.Equal(t, max, backoffDelay(base, max, 5))
	assert.Equal(t, max, backoffDelay(base, max, 40))
}

func TestParseKeyValue(t *testing.T) {
	key, value, err := parseKeyValue("batch_delay_ms=500")
	require.NoError(t, err)
	assert.Equal(t, "batch_delay_ms", key)
	assert.Equal(t, "500", value)

	// Value may itself contain '='
	key, value, err = parseKeyValue(" destination.dsn = host=db user=relay ")
	require.NoError(t, err)
	assert.Equal(t, "destination.dsn", key)
	assert.Equal(t, "host=db user=relay", value)

	_, _, err = parseKeyValue("no-separator")
	assert.Error(t, err)

	_, _, err = parseKeyValue("=value")
	assert.Error(t, err)
}

func TestCombineErrors(t *testing.T) {
	e1 := errors.New("first")
	e2 := errors.New("second")

	assert.Nil(t, combineErrors(nil, nil))
	assert.Equal(t, e1, combineErrors(e1, nil))
	assert.Equal(t, e2, combineErrors(nil, e2))

	both := combineErrors(e1, e2)
	require.Error(t, both)
	assert.Contains(t, both.Error(), "first")
	assert.Contains(t, both.Error(), "second")
	assert.True(t, errors.Is(both, e2))
}

func TestFmtErrorfPrefix(t *testing.T) {
	assert.Equal(t, "relay: boom", fmtErrorf("boom").Error())
	assert.Equal(t, "relay: boom", fmtErrorf("relay: boom").Error())
}
