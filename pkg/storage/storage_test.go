package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/storage"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	disk := storage.NewLocal(t.TempDir(), "")

	require.NoError(t, disk.Put(ctx, "exports/delivery/b.json", []byte(`{"b":1}`)))
	require.NoError(t, disk.Put(ctx, "exports/delivery/a.csv", []byte("a")))

	assert.True(t, disk.Exists(ctx, "exports/delivery/b.json"))
	data, err := disk.Get(ctx, "exports/delivery/b.json")
	require.NoError(t, err)
	assert.Equal(t, `{"b":1}`, string(data))

	files, err := disk.Files(ctx, "exports/delivery")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/delivery/a.csv", "exports/delivery/b.json"}, files)

	require.NoError(t, disk.Delete(ctx, "exports/delivery/a.csv"))
	require.NoError(t, disk.Delete(ctx, "exports/delivery/a.csv"))
	assert.False(t, disk.Exists(ctx, "exports/delivery/a.csv"))

	_, err = disk.Get(ctx, "missing.json")
	assert.Error(t, err)
}

func TestLocalFilesOnMissingDir(t *testing.T) {
	files, err := storage.NewLocal(t.TempDir(), "").Files(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalURL(t *testing.T) {
	assert.Equal(t, "https://cdn.test/exports/x.json",
		storage.NewLocal(t.TempDir(), "https://cdn.test/").URL("/exports/x.json"))
	assert.Contains(t, storage.NewLocal(t.TempDir(), "").URL("x.json"), "file://")
}

func TestOpen(t *testing.T) {
	d, err := storage.Open(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, "local", d.Driver())

	_, err = storage.Open(context.Background(), "ftp")
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}
