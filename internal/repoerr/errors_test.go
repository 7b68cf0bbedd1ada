package repoerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "validation with field",
			err:      Validation("age", "page size must be positive"),
			expected: "VALIDATION: page size must be positive (field=age)",
		},
		{
			name:     "storage with op",
			err:      &Error{Code: CodeStorageFailure, Op: "find", Err: errors.New("disk I/O error")},
			expected: "STORAGE_FAILURE: find: disk I/O error",
		},
		{
			name:     "conflict with message and cause",
			err:      Conflict("sequence.create", "sequence exists", errors.New("UNIQUE constraint failed")),
			expected: "CONCURRENCY_CONFLICT: sequence.create: sequence exists: UNIQUE constraint failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestStorageWrapsPlainErrors(t *testing.T) {
	err := Storage("count", context.DeadlineExceeded)

	assert.True(t, IsStorageFailure(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStoragePassesTaxonomyErrorsThrough(t *testing.T) {
	conflict := Conflict("sequence.create", "exists", nil)
	wrapped := fmt.Errorf("adapter: %w", conflict)

	err := Storage("sequence.create", wrapped)

	assert.Same(t, wrapped, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsStorageFailure(err))
}

func TestStorageNil(t *testing.T) {
	require.NoError(t, Storage("find", nil))
}

func TestPredicatesOnWrappedErrors(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("sequence.increment", "no sequence \"a\""))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
