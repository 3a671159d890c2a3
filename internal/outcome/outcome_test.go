package outcome

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReject(t *testing.T) {
	err := Reject(CodeDuplicate, "group %q already exists", "eng")

	assert.Equal(t, CodeDuplicate, err.Code)
	assert.Equal(t, `group "eng" already exists`, err.Reason)
	assert.Equal(t, `DUPLICATE: group "eng" already exists`, err.Error())
}

func TestShorthands(t *testing.T) {
	assert.Equal(t, CodeInvalid, Invalid("x").Code)
	assert.Equal(t, CodeNotFound, NotFound("x").Code)
	assert.Equal(t, CodeDuplicate, Duplicate("x").Code)
	assert.Equal(t, CodeForbidden, Forbidden("x").Code)
}

func TestClassification_WrappedRequestError(t *testing.T) {
	err := fmt.Errorf("create membership: %w", Duplicate("already a member"))

	assert.True(t, IsRequestFailure(err))
	assert.False(t, IsInfrastructure(err))
	assert.Equal(t, CodeDuplicate, CodeOf(err))
	assert.True(t, Is(err, CodeDuplicate))
	assert.False(t, Is(err, CodeNotFound))
}

func TestInfra_IsOpaque(t *testing.T) {
	err := Infra("documents.create", fmt.Errorf("insert filedata: %w", sql.ErrConnDone), "keeper_id", "k-1")
	require.Error(t, err)

	assert.Equal(t, OpaqueMessage, err.Error())
	assert.NotContains(t, err.Error(), "filedata")
	assert.True(t, IsInfrastructure(err))
	assert.False(t, IsRequestFailure(err))
	assert.Equal(t, Code(""), CodeOf(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestInfra_Details(t *testing.T) {
	err := Infra("documents.create", sql.ErrConnDone, "keeper_id", "k-1")

	var ie *InfraError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, []any{"op", "documents.create", "keeper_id", "k-1"}, ie.Details())
	assert.Contains(t, ie.Cause(), "connection is already closed")
}

func TestInfra_NilAndIdempotent(t *testing.T) {
	assert.NoError(t, Infra("op", nil))

	first := Infra("inner", sql.ErrTxDone)
	second := Infra("outer", first)
	assert.Same(t, first, second)
}
