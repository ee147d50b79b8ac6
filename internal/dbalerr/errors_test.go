package dbalerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindAndStatus(t *testing.T) {
	err := NotFound("user %q not found", "abc")
	assert.Equal(t, KindNotFound, err.Kind())
	assert.Equal(t, 404, err.HTTPStatus())
	assert.Contains(t, err.Error(), "abc")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindConflict, cause, "unique violation")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternalError, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("x")))
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NotFound("a")
	b := NotFound("b")
	c := Conflict("c")
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestResultUnwrap(t *testing.T) {
	ok := Ok(42)
	v, err := ok.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	failed := Err[int](ValidationError("bad"))
	_, err = failed.Unwrap()
	require.Error(t, err)
	assert.Equal(t, KindValidationError, KindOf(err))
}

func TestFormatOmitsMessageWithoutDetails(t *testing.T) {
	err := Forbidden("no access")
	wire := Format(err, false)
	assert.Equal(t, 403, wire.Error.Code)
	assert.Empty(t, wire.Error.Message)

	wire = Format(err, true)
	assert.Contains(t, wire.Error.Message, "no access")
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityCritical, SeverityOf(KindInternalError))
	assert.Equal(t, SeverityError, SeverityOf(KindTimeout))
	assert.Equal(t, SeverityWarn, SeverityOf(KindConflict))
}

func TestFromPostgresSQLState(t *testing.T) {
	assert.Equal(t, KindConflict, FromPostgresSQLState("23505", errors.New("dup")).Kind())
	assert.Equal(t, KindForbidden, FromPostgresSQLState("42501", errors.New("x")).Kind())
	assert.Equal(t, KindValidationError, FromPostgresSQLState("42601", errors.New("x")).Kind())
	assert.Equal(t, KindDatabaseError, FromPostgresSQLState("08006", errors.New("x")).Kind())
	assert.Equal(t, KindTimeout, FromPostgresSQLState("57014", errors.New("x")).Kind())
}

func TestFromHTTPStatus(t *testing.T) {
	assert.Equal(t, KindNotFound, FromHTTPStatus(404, "").Kind())
	assert.Equal(t, KindConflict, FromHTTPStatus(409, "").Kind())
	assert.Equal(t, KindValidationError, FromHTTPStatus(400, "").Kind())
	assert.Equal(t, KindInternalError, FromHTTPStatus(500, "").Kind())
}
