package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(ErrCodeNotFound, "missing")
	assert.Equal(t, "[NOT_FOUND] missing", plain.Error())

	cause := stderrors.New("disk full")
	wrapped := Wrap(cause, ErrCodeStorageError, "save failed")
	assert.Equal(t, "[STORAGE_ERROR] save failed: disk full", wrapped.Error())
	assert.Equal(t, cause, wrapped.Unwrap())
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestIsInternal(t *testing.T) {
	assert.True(t, New(ErrCodeInternal, "x").IsInternal())
	assert.True(t, New(ErrCodeStorageError, "x").IsInternal())
	assert.True(t, New(ErrCodePlatformAPI, "x").IsInternal())
	assert.False(t, New(ErrCodeValidation, "x").IsInternal())
	assert.False(t, New(ErrCodeGiveawayEnded, "x").IsInternal())
}

func TestWithDetailAndRequestID(t *testing.T) {
	err := New(ErrCodeConflict, "busy").
		WithDetail("key", "value").
		WithRequestID("req-1")
	assert.Equal(t, "value", err.Details["key"])
	assert.Equal(t, "req-1", err.RequestID)
}

func TestConstructors(t *testing.T) {
	nf := NewGiveawayNotFoundError("msg-1")
	assert.Equal(t, ErrCodeGiveawayNotFound, nf.Code)
	assert.Equal(t, "msg-1", nf.Details["message_id"])

	cause := stderrors.New("boom")

	se := NewStorageError("save", cause)
	require.Equal(t, ErrCodeStorageError, se.Code)
	assert.Equal(t, "save", se.Details["operation"])
	assert.True(t, stderrors.Is(se, cause))

	pe := NewPlatformError("post announcement", cause)
	require.Equal(t, ErrCodePlatformAPI, pe.Code)
	assert.Equal(t, "post announcement", pe.Details["operation"])
	assert.True(t, stderrors.Is(pe, cause))
}
