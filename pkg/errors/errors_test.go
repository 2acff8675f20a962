package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		caller    bool
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", caller: true, detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required", caller: true},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied", caller: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", caller: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", caller: true, detailsOK: true},
		{code: CodeIdempotency, status: http.StatusConflict, publicMsg: "idempotency key reused", caller: true, detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "rate limit exceeded", caller: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			meta := MetadataFor(tt.code)
			assert.Equal(t, tt.status, meta.HTTPStatus)
			assert.Equal(t, tt.publicMsg, meta.PublicMessage)
			assert.Equal(t, tt.caller, meta.CallerMessage)
			assert.Equal(t, tt.retryable, meta.Retryable)
			assert.Equal(t, tt.detailsOK, meta.DetailsAllowed)
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	assert.False(t, meta.CallerMessage)
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing quantity")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing quantity", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing quantity", base.Error())

	base.WithDetails(map[string]any{"field": "quantity"})
	assert.Equal(t, map[string]any{"field": "quantity"}, base.Details())

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "add line")
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeConflict, wrapped.Code())
	assert.Equal(t, "CONFLICT: add line: boom", wrapped.Error())

	assert.Nil(t, Wrap(CodeInternal, nil, "x").Unwrap())
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeForbidden, "no entry"))
	got := As(err)
	require.NotNil(t, got)
	assert.Equal(t, CodeForbidden, got.Code())
	assert.Nil(t, As(nil))
	assert.Nil(t, As(stdErrors.New("plain")))

	var nilErr *Error
	assert.Equal(t, CodeInternal, nilErr.Code())
	assert.Empty(t, nilErr.Message())
}

func TestHasCodeAndRetryable(t *testing.T) {
	unauth := fmt.Errorf("fetch: %w", New(CodeUnauthorized, "token expired"))
	assert.True(t, HasCode(unauth, CodeUnauthorized))
	assert.False(t, HasCode(unauth, CodeNotFound))
	assert.False(t, HasCode(nil, CodeUnauthorized))

	assert.True(t, IsRetryable(Wrap(CodeDependency, stdErrors.New("dial"), "redis")))
	assert.False(t, IsRetryable(New(CodeConflict, "out of stock")))
	assert.False(t, IsRetryable(stdErrors.New("plain")))
}
