package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	require.NotNil(t, err)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, ErrInternal.Message, err.Message)
}

func TestClonedErrorsMatchByCode(t *testing.T) {
	err := fmt.Errorf("layer: %w", Clone(ErrForbidden, "not yours"))
	assert.True(t, stderrors.Is(err, ErrForbidden))
	assert.False(t, stderrors.Is(err, ErrNotFound))
}

func TestReferentialConflictCarriesCount(t *testing.T) {
	err := ReferentialConflict("department", 2, 0)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, 2, err.Details["count"])
	assert.Equal(t, 0, err.Details["archived"])
	assert.Contains(t, err.Message, "2 dependent record(s)")
	assert.NotContains(t, err.Message, "deleted assets")
	assert.Nil(t, ErrReferentialConflict.Details)

	err = ReferentialConflict("category", 1, 1)
	assert.Equal(t, 1, err.Details["archived"])
	assert.Contains(t, err.Message, "1 of them deleted assets kept for history")
}

func TestInvalidTransitionCarriesState(t *testing.T) {
	err := InvalidTransition("asset", "retired", "assign")
	assert.True(t, stderrors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "retired", err.Details["current_status"])
}
