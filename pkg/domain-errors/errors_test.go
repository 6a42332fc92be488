package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "plain coded error", err: New(CodeNotFound, "no such item"), want: CodeNotFound},
		{name: "wrapped coded error", err: fmt.Errorf("resolve: %w", New(CodeAlreadyResolved, "done")), want: CodeAlreadyResolved},
		{name: "uncoded error", err: errors.New("disk full"), want: CodeInternal},
		{name: "nil", err: nil, want: CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}
}

func TestIsMatchesCodeThroughChain(t *testing.T) {
	err := Wrap(CodeDuplicateReview, "open item exists", errors.New("23505"))
	wrapped := fmt.Errorf("enqueue: %w", err)

	assert.True(t, Is(wrapped, CodeDuplicateReview))
	assert.False(t, Is(wrapped, CodeNotFound))
}

func TestWithDetailAccumulates(t *testing.T) {
	err := New(CodeAlreadyResolved, "item is terminal").
		WithDetail("current_status", "approved")

	assert.Equal(t, "approved", err.Details["current_status"])
	assert.Equal(t, CodeAlreadyResolved, CodeOf(err))
}
