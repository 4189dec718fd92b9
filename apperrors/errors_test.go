package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	err := NewValidationError("INVALID_PRICE", "price must be positive").WithField("price")
	assert.Equal(t, "INVALID_PRICE: price must be positive (field: price)", err.Error())

	cause := errors.New("boom")
	wrapped := NewStorageError("WRITE_FAILED", "insert verdicts").WithCause(cause)
	assert.Equal(t, "WRITE_FAILED: insert verdicts: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestTypePredicatesSeeThroughWrapping(t *testing.T) {
	base := NewConfigurationError("EMPTY_WORD_LIST", "suspicious words are empty")
	err := fmt.Errorf("policy: load: %w", base)

	assert.True(t, IsConfiguration(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError("X", "x"), http.StatusUnprocessableEntity},
		{NewInputShapeError("X", "x"), http.StatusBadRequest},
		{NewModelError("X", "x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
