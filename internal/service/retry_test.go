package service

import (
	"context"
	"errors"
	"testing"

	"premarket-access-be/internal/pkg/apperror"
	"premarket-access-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
)

func TestWithConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries until the write lands", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, 5, "grant_access", func() error {
			calls++
			if calls < 3 {
				return contract.ErrVersionConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up with a conflict error", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, 2, "payment", func() error {
			calls++
			return contract.ErrVersionConflict
		})
		assert.Equal(t, 2, calls)
		assert.True(t, apperror.Is(err, apperror.CodeConcurrentWriteConflict))
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		calls := 0
		boom := errors.New("boom")
		err := withConflictRetry(ctx, 5, "payment", func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})
}
