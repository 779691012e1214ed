// FILE: facade_test.go
package relay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFacadeErrorTaxonomy(t *testing.T) {
	// Throttling is always retryable, whatever the caller passed
	fe := NewFacadeError("http.send", ReasonThrottling, false, nil, "429 from collector")
	assert.True(t, fe.Retryable)

	// A configuration problem can never become retryable
	fe = NewFacadeError("db.open", ReasonInvalidConfiguration, true, nil, "bad credentials")
	assert.False(t, fe.Retryable)

	// Other reasons keep the caller's flag
	fe = NewFacadeError("http.send", ReasonUnexpected, true, nil, "connection reset")
	assert.True(t, fe.Retryable)
	fe = NewFacadeError("http.send", ReasonUnexpected, false, nil, "418 teapot")
	assert.False(t, fe.Retryable)
}

func TestFacadeErrorMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	fe := NewFacadeError("beats.connect", ReasonUnexpected, true, cause, "cannot reach %s", "localhost:5044")

	msg := fe.Error()
	assert.Contains(t, msg, "beats.connect")
	assert.Contains(t, msg, "cannot reach localhost:5044")
	assert.Contains(t, msg, "UNEXPECTED_EXCEPTION")
	assert.Contains(t, msg, "retryable=true")
	assert.Contains(t, msg, "dial tcp: refused")

	assert.True(t, errors.Is(fe, cause))
}

func TestAsFacadeError(t *testing.T) {
	assert.Nil(t, AsFacadeError(nil))

	// Classification survives wrapping
	fe := NewFacadeError("http.send", ReasonMissingDestination, false, nil, "stream gone")
	wrapped := fmtErrorf("send failed: %w", fe)
	got := AsFacadeError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ReasonMissingDestination, got.Reason)

	// A raw error becomes a non-retryable UNEXPECTED
	got = AsFacadeError(errors.New("boom"))
	require.NotNil(t, got)
	assert.Equal(t, ReasonUnexpected, got.Reason)
	assert.False(t, got.Retryable)
	assert.Equal(t, "boom", got.Message)
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "THROTTLING", ReasonThrottling.String())
	assert.Equal(t, "INVALID_CONFIGURATION", ReasonInvalidConfiguration.String())
	assert.Equal(t, "MISSING_DESTINATION", ReasonMissingDestination.String())
	assert.Equal(t, "ALREADY_EXISTS", ReasonAlreadyExists.String())
	assert.Equal(t, "CONCURRENT_WRITER", ReasonConcurrentWriter.String())
	assert.Equal(t, "UNEXPECTED_EXCEPTION", ReasonUnexpected.String())
	assert.Equal(t, "UNEXPECTED_EXCEPTION", Reason(99).String())
}
