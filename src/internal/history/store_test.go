package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

func record(tag string) models.HistoryRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return models.HistoryRecord{
		Kind:       models.HistoryQuickUpdate,
		Tag:        tag,
		Success:    true,
		StartedAt:  now,
		FinishedAt: now,
	}
}

func TestStoreAppendAndList(t *testing.T) {
	for name, dir := range map[string]string{"bolt": t.TempDir(), "memory": ""} {
		t.Run(name, func(t *testing.T) {
			s, err := Open(dir, 3)
			require.NoError(t, err)
			defer s.Close()

			for i := 1; i <= 5; i++ {
				rec, err := s.Append(record(fmt.Sprintf("v%d", i)))
				require.NoError(t, err)
				assert.NotEmpty(t, rec.ID)
			}

			all, err := s.List(0)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "v5", all[0].Tag)
			assert.Equal(t, "v3", all[2].Tag)

			two, err := s.List(2)
			require.NoError(t, err)
			require.Len(t, two, 2)
			assert.Equal(t, "v4", two[1].Tag)
		})
	}
}

func TestStorePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, 0)
	require.NoError(t, err)
	rec := record("v6.1.0")
	rec.ID = "fixed-id"
	rec.Success = false
	rec.Error = "Update failed: boom"
	_, err = s.Append(rec)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, 0)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.List(20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}
