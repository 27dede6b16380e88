package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImporter_Import(t *testing.T) {
	dir := t.TempDir()
	login := filepath.Join(dir, "login.csv")
	checkout := filepath.Join(dir, "checkout.csv")
	require.NoError(t, os.WriteFile(login, []byte("cpu,cpu,0,10\ncpu,cpu,1,20\n"), 0o600))
	require.NoError(t, os.WriteFile(checkout, []byte("memory,memory,0,512\n"), 0o600))

	repo, err := FromMemory()
	require.NoError(t, err)
	defer repo.Close()

	importer := NewImporter(repo, logger.Nop(), WithProgressWriter(io.Discard))
	total, err := importer.Import(context.Background(), "build-7", login, checkout)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	snapshot, err := repo.Fetch(context.Background(), "build-7", "login")
	require.NoError(t, err)
	assert.Len(t, snapshot.Groups(core.CPU)[0].Samples, 2)

	entries, err := repo.Entries()
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{RunID: "build-7", TestID: "checkout", Samples: 1},
		{RunID: "build-7", TestID: "login", Samples: 2},
	}, entries)
}

func TestImporter_Failure(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.csv")
	require.NoError(t, os.WriteFile(broken, []byte("cpu,cpu,soon,1\n"), 0o600))

	repo, err := FromMemory()
	require.NoError(t, err)
	defer repo.Close()

	importer := NewImporter(repo, logger.Nop(), WithProgressWriter(io.Discard))
	_, err = importer.Import(context.Background(), "build", broken)
	assert.ErrorContains(t, err, "broken.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = importer.Import(ctx, "build", broken)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTestID(t *testing.T) {
	assert.Equal(t, "login", TestID("/tmp/metrics/login.csv"))
	assert.Equal(t, "raw", TestID("raw"))
}
