package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "message only",
			err:      New(ErrUsage, "bad flag", ""),
			contains: []string{"✗ bad flag"},
		},
		{
			name:     "with suggestion",
			err:      New(ErrArtifact, "cube missing", "check the path"),
			contains: []string{"✗ cube missing", "check the path"},
		},
		{
			name:     "with cause",
			err:      Wrap(fmt.Errorf("connection refused"), "transfer failed"),
			contains: []string{"✗ transfer failed", "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				assert.True(t, strings.Contains(msg, want),
					"error %q should contain %q", msg, want)
			}
		})
	}
}

func TestIsCode(t *testing.T) {
	err := New(ErrResolve, "no hosts match", "")

	assert.True(t, IsCode(err, ErrResolve))
	assert.False(t, IsCode(err, ErrRemote))
	assert.False(t, IsCode(nil, ErrResolve))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrResolve))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := New(ErrSecret, "decryption failed", "")
	outer := fmt.Errorf("during run: %w", inner)

	assert.True(t, IsCode(outer, ErrSecret))
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := WrapWithCode(cause, ErrRemote, "exec failed", "")

	require.ErrorIs(t, err, cause)
}

func TestExitError(t *testing.T) {
	err := NewExitError(3)
	assert.Equal(t, 3, err.Code)
	assert.Equal(t, "exit status 3", err.Error())

	var exitErr *ExitError
	assert.True(t, stderrors.As(fmt.Errorf("wrapped: %w", err), &exitErr))
}
