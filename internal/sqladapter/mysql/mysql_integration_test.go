//go:build integration

package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// TestOpenAgainstRealMySQL is gated behind the "integration" build tag since
// it launches a real MySQL container (teacher's testcontainers-go+mysql
// dependency) rather than running against a fake.
func TestOpenAgainstRealMySQL(t *testing.T) {
	ctx := context.Background()
	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("dbal_test"),
		mysql.WithUsername("dbal"),
		mysql.WithPassword("dbal"),
	)
	require.NoError(t, err)
	defer func() { require.NoError(t, container.Terminate(ctx)) }()

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	m, err := Open(dsn)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.DB().PingContext(ctx))
}
