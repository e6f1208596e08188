package storage

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func TestMemoryPositionRepo(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	st := PlayerState{Position: mgl64.Vec3{1.5, 64, -3}, IsFlying: true}
	require.NoError(t, repo.Save(ctx, 7, st))

	got, ok, err := repo.Load(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	_, ok, err = repo.Load(ctx, 8)
	require.NoError(t, err)
	assert.False(t, ok, "первый вход")

	require.NoError(t, repo.Delete(ctx, 7))
	assert.ErrorIs(t, repo.Delete(ctx, 7), ErrNotFound)
}

func TestMemoryPositionRepo_Validation(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	assert.ErrorIs(t, repo.Save(ctx, 0, PlayerState{}), ErrInvalidPlayerID)
	assert.Error(t, repo.Save(ctx, 1, PlayerState{Position: mgl64.Vec3{math.NaN(), 0, 0}}))

	err := repo.BatchSave(ctx, map[uint64]PlayerState{
		1: {Position: mgl64.Vec3{1, 2, 3}},
		0: {Position: mgl64.Vec3{1, 2, 3}},
	})
	assert.ErrorIs(t, err, ErrInvalidPlayerID)
	assert.Equal(t, 0, repo.Count(), "батч с ошибкой не пишется частично")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, repo.Save(cancelled, 1, PlayerState{}), context.Canceled)
}

func TestMemoryPositionRepo_Concurrent(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = repo.Save(ctx, id, PlayerState{Position: mgl64.Vec3{float64(j), 0, 0}})
				_, _, _ = repo.Load(ctx, id)
			}
		}(uint64(i))
	}
	wg.Wait()
	assert.Equal(t, 16, repo.Count())
}

func newTestStorage(t *testing.T) *WorldStorage {
	t.Helper()
	ws, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func TestWorldStorage_SaveLoadChunk(t *testing.T) {
	ws := newTestStorage(t)

	c := world.NewChunk(vec.New(2, -1, 5))
	c.Timestamp = 555
	c.SetLocal(vec.New(1, 2, 3), block.New(block.StoneBlockID))
	c.SetLocal(vec.New(15, 0, 15), block.Block{ID: block.SlabBlockID, Direction: block.South, Flipped: true})
	require.NoError(t, ws.SaveChunk(c))

	got, ok, err := ws.LoadChunk(c.Coords)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.Timestamp, got.Timestamp)
	assert.Equal(t, c.Entries(), got.Entries())

	_, ok, err = ws.LoadChunk(vec.New(0, 0, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := ws.ChunkCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWorldStorage_Seed(t *testing.T) {
	ws := newTestStorage(t)

	_, ok, err := ws.Seed()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ws.SetSeed(-42))
	seed, ok, err := ws.Seed()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(-42), seed)
}

func TestWorldStorage_Closed(t *testing.T) {
	ws, err := NewWorldStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ws.Close())
	require.NoError(t, ws.Close())

	_, _, err = ws.LoadChunk(vec.New(0, 0, 0))
	assert.ErrorIs(t, err, ErrStorageClosed)
}

func TestLoadingGenerator(t *testing.T) {
	ws := newTestStorage(t)
	gen := &LoadingGenerator{Storage: ws, Fallback: &world.FlatGenerator{Height: 4, Surface: block.GrassBlockID, Fill: block.DirtBlockID}}

	saved := world.NewChunk(vec.New(0, 0, 0))
	saved.SetLocal(vec.New(0, 8, 0), block.New(block.LogBlockID))
	require.NoError(t, ws.SaveChunk(saved))

	got := gen.GenerateChunk(vec.New(0, 0, 0), 1)
	assert.Equal(t, saved.Entries(), got.Entries())

	fresh := gen.GenerateChunk(vec.New(1, 0, 0), 1)
	assert.Greater(t, fresh.Len(), 0)
}
