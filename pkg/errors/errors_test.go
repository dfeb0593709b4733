package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCode(t *testing.T) {
	meta := MetadataFor(CodeStateConflict)
	assert.Equal(t, http.StatusUnprocessableEntity, meta.HTTPStatus)
	assert.True(t, meta.DetailsAllowed)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
	assert.True(t, meta.Retryable)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeDependency, cause, "load sale")

	require.NotNil(t, err)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "load sale", err.Message())
	assert.Equal(t, cause, err.Unwrap())
}

func TestWrapNilCauseBehavesLikeNew(t *testing.T) {
	err := Wrap(CodeValidation, nil, "sale id required")
	require.NotNil(t, err)
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "VALIDATION_ERROR: sale id required", err.Error())
}

func TestAsUnwrapsNestedTypedError(t *testing.T) {
	inner := New(CodeNotFound, "Sale with id 42 not found")
	wrapped := fmt.Errorf("handler: %w", inner)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
}

func TestAsReturnsNilForUntypedError(t *testing.T) {
	assert.Nil(t, As(fmt.Errorf("plain")))
	assert.Nil(t, As(nil))
}

func TestChainListsOutermostFirst(t *testing.T) {
	cause := fmt.Errorf("row missing")
	err := Wrap(CodeNotFound, cause, "load sale")

	chain := Chain(err)
	require.Len(t, chain, 2)
	assert.Equal(t, "NOT_FOUND: load sale", chain[0])
	assert.Equal(t, "row missing", chain[1])
}

func TestWithDetailsRoundTrip(t *testing.T) {
	err := New(CodeValidation, "validation failed").WithDetails(map[string]string{"quantity": "must be at most 20"})
	details, ok := err.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at most 20", details["quantity"])
}
