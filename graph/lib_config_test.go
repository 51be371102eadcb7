package graph_test

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hjeronen/FullStackGraphQL/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		cfg, err := graph.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "4000", cfg.Port)
		assert.Equal(t, "s3cret", cfg.TokenSecret)
		assert.Equal(t, "secret", cfg.LoginPassword)
		assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
		assert.True(t, cfg.Migrate)
		assert.True(t, cfg.Seed)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("PORT", "8088")
		t.Setenv("TOKEN_TTL", "1h")
		t.Setenv("SEED", "false")
		t.Setenv("SUBSCRIBER_BUFFER", "64")
		cfg, err := graph.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "8088", cfg.Port)
		assert.Equal(t, time.Hour, cfg.TokenTTL)
		assert.False(t, cfg.Seed)
		assert.Equal(t, 64, cfg.SubscriberSize)
	})

	t.Run("secret is required", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := graph.LoadConfig()
		assert.EqualError(t, err, "missing required environment variable: JWT_SECRET")
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("TOKEN_TTL", "forever")
		_, err := graph.LoadConfig()
		assert.Error(t, err)
	})
}

func TestPopulate(t *testing.T) {
	sqlDB, db, mock, err := Setup()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectQuery(QuoteMeta(`SELECT count(*) FROM "authors"`)).
		WithArgs(NoArgs...).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(QuoteMeta(`SELECT count(*) FROM "books"`)).
		WithArgs(NoArgs...).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	require.NoError(t, graph.Populate(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
