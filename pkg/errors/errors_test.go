package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Clone(ErrInvalidTransition, "record already reviewed")
	assert.True(t, Is(err, ErrInvalidTransition))
	assert.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("review: %w", err)
	assert.True(t, Is(wrapped, ErrInvalidTransition))
	assert.False(t, Is(nil, ErrInvalidTransition))
}

func TestNotPermittedSharesUnauthorizedCode(t *testing.T) {
	assert.True(t, Is(ErrNotPermitted, ErrUnauthorized))
	assert.Equal(t, http.StatusForbidden, ErrNotPermitted.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))
}
