package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRichErrorEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category goerrors.Category
		code     int
		textCode string
	}{
		{"validation", Validation("bad input", nil), goerrors.CategoryValidation, http.StatusBadRequest, CodeValidation},
		{"request not found", RequestNotFound("Rabc"), goerrors.CategoryNotFound, http.StatusNotFound, CodeRequestNotFound},
		{"duplicate grant", DuplicateActiveGrant("Rabc", "agent"), goerrors.CategoryConflict, http.StatusConflict, CodeDuplicateActiveGrant},
		{"exhausted", PaymentAttemptsExhausted("p1", 3), goerrors.CategoryConflict, http.StatusUnprocessableEntity, CodePaymentAttemptsExhausted},
		{"invariant", InvariantViolation("boom", nil), goerrors.CategoryInternal, http.StatusInternalServerError, CodeInvariantViolation},
		{"provider", PaymentProviderError(errors.New("timeout"), "ref"), goerrors.CategoryExternal, http.StatusBadGateway, CodePaymentProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rich, ok := From(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.category, rich.Category)
			assert.Equal(t, tt.code, rich.Code)
			assert.Equal(t, tt.textCode, rich.TextCode)
			assert.True(t, Is(tt.err, tt.textCode))
		})
	}
}

func TestIsSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create grant: %w", GrantNotFound("g1"))

	assert.True(t, Is(err, CodeGrantNotFound))
	assert.False(t, Is(err, CodeRequestNotFound))
	assert.False(t, Is(errors.New("plain"), CodeGrantNotFound))
	assert.False(t, Is(nil, CodeGrantNotFound))
}
