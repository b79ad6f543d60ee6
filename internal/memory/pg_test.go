package memory

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
	"github.com/chnghia/atomic-inference-boilerplate/internal/db"
	"github.com/chnghia/atomic-inference-boilerplate/internal/repo"
)

func openTestStore(t *testing.T) *PGStore {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.ApplyMigrations(ctx, conn.DB))

	s, err := NewPGStore(repo.NewMemoryRepo(conn), newBagEmbedder(16), "test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Clear(context.Background()) })
	return s
}

func TestPGStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids, err := s.AddMany(ctx, []Document{
		{Content: "cats purr softly", Metadata: map[string]interface{}{"source": "cats.md"}},
		{Content: "dogs bark loudly"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	res, err := s.Search(ctx, "cats", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "cats purr softly", res[0].Content)
	require.Equal(t, "cats.md", res[0].Source)
	require.Greater(t, *res[0].Score, 0.0)

	ok, err := s.Delete(ctx, ids[0])
	require.NoError(t, err)
	require.True(t, ok)
	n, err = s.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestNewPGStoreRequiresDeps(t *testing.T) {
	_, err := NewPGStore(nil, newBagEmbedder(4), "")
	require.Error(t, err)
}
