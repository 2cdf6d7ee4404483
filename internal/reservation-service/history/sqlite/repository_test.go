package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/car-rental-reservations/internal/reservation-service/history"
)

func TestRepository_AppendAndList(t *testing.T) {
	repo, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Append(ctx, history.NewEntry(ctx, "r-1", "", "PENDING", "created", at)))
	require.NoError(t, repo.Append(ctx, history.NewEntry(ctx, "r-1", "PENDING", "EXPIRED", "payment deadline passed", at.Add(5*time.Minute))))
	require.NoError(t, repo.Append(ctx, history.NewEntry(ctx, "r-2", "", "PENDING", "created", at)))

	entries, err := repo.List(ctx, "r-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "PENDING", entries[0].ToStatus)
	assert.Equal(t, "PENDING", entries[1].FromStatus)
	assert.Equal(t, "EXPIRED", entries[1].ToStatus)
	assert.True(t, entries[1].RecordedAt.Equal(at.Add(5*time.Minute)))
	assert.Empty(t, entries[0].TraceID, "no span in a plain context")
}
