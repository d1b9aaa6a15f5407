package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[syntax] unexpected token", New(ErrKindSyntax, "unexpected token").Error())

	cause := errors.New("boom")
	assert.Equal(t, "[query_failed] execute: boom", Wrap(ErrKindQueryFailed, "execute", cause).Error())
	assert.Equal(t, "[cycle] columns A, B", Newf(ErrKindCycle, "columns %s, %s", "A", "B").Error())
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", New(ErrKindNotFound, "x"), IsNotFound},
		{"timeout", New(ErrKindTimeout, "x"), IsTimeout},
		{"connection", New(ErrKindConnectionFailed, "x"), IsConnectionFailed},
		{"query", New(ErrKindQueryFailed, "x"), IsQueryFailed},
		{"invalid", New(ErrKindInvalidInput, "x"), IsInvalidInput},
		{"permission", New(ErrKindPermissionDenied, "x"), IsPermissionDenied},
		{"syntax", New(ErrKindSyntax, "x"), IsSyntax},
		{"cycle", New(ErrKindCycle, "x"), IsCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, tt.check(wrapped), "predicate should see through wrapping")
		})
	}
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrKindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrKindUnknown, KindOf(nil))
	assert.Equal(t, "unknown", ErrKindUnknown.String())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(ErrKindTimeout, "deadline", cause)
	assert.ErrorIs(t, err, cause)
}
