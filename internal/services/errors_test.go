package services

import (
	"fmt"
	"testing"

	apperrors "taskmaker/backend/internal/errors"
	"taskmaker/backend/internal/repositories"

	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	raced := fmt.Errorf("%w: deadlock detected", repositories.ErrConcurrentUpdate)

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"not found", repositories.ErrNotFound, apperrors.NotFound("task not found")},
		{"duplicate", fmt.Errorf("%w: key", repositories.ErrDuplicate), apperrors.Conflict("already exists")},
		{"lost race", raced, ErrConcurrentUpdate},
		{"lost race behind internal", apperrors.Internal(raced), ErrConcurrentUpdate},
		{"taxonomy passes through", ErrTaskAssigned, ErrTaskAssigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageError(tt.err, "task not found", "already exists")
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}
