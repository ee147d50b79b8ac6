package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeStatementFlagsUnguardedDelete(t *testing.T) {
	a, err := AnalyzeStatement(`DELETE FROM "document"`)
	require.NoError(t, err)
	assert.True(t, a.Destructive)
}

func TestAnalyzeStatementAllowsGuardedDelete(t *testing.T) {
	a, err := AnalyzeStatement(`DELETE FROM "document" WHERE "status" = ?`)
	require.NoError(t, err)
	assert.False(t, a.Destructive)
}

func TestAnalyzeStatementFlagsUnguardedUpdate(t *testing.T) {
	a, err := AnalyzeStatement(`UPDATE "document" SET "status" = ?`)
	require.NoError(t, err)
	assert.True(t, a.Destructive)
}

func TestAnalyzeStatementIgnoresSelect(t *testing.T) {
	a, err := AnalyzeStatement(`SELECT "id" FROM "document"`)
	require.NoError(t, err)
	assert.False(t, a.Destructive)
}

func TestGuardReturnsValidationError(t *testing.T) {
	err := Guard(`DELETE FROM "document"`)
	require.Error(t, err)
}
