package internal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ValidationError("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFoundError("user %s not found", "u1")))
	assert.Equal(t, KindUpstream, KindOf(UpstreamError("provider down", nil)))
	assert.Equal(t, KindPersistence, KindOf(PersistenceError("disk full", nil)))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFoundError("gone"))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := UpstreamError("provider call failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "provider call failed")
	assert.Contains(t, err.Error(), "connection reset")
}
