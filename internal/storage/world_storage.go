package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/protocol"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// ErrStorageClosed хранилище уже закрыто
var ErrStorageClosed = errors.New("хранилище не готово")

const (
	chunkKeyPrefix = "chunk:"
	seedKey        = "meta:seed"
)

// WorldStorage хранит изменённые чанки мира в BadgerDB.
// Значение: timestamp (8 байт, big-endian) + сжатый список блоков.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewWorldStorage открывает хранилище в каталоге dataPath/world
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}
	ws.isReady = false
	return ws.db.Close()
}

func chunkKey(c vec.Vec3) []byte {
	return []byte(fmt.Sprintf("%s%d:%d:%d", chunkKeyPrefix, c.X, c.Y, c.Z))
}

// SaveChunk сохраняет чанк целиком
func (ws *WorldStorage) SaveChunk(chunk *world.Chunk) error {
	return ws.SaveChunks([]*world.Chunk{chunk})
}

// SaveChunks сохраняет пачку чанков одной записью
func (ws *WorldStorage) SaveChunks(chunks []*world.Chunk) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrStorageClosed
	}

	wb := ws.db.NewWriteBatch()
	defer wb.Cancel()

	for _, chunk := range chunks {
		blocks, err := protocol.EncodeChunkBlocks(chunk)
		if err != nil {
			return fmt.Errorf("ошибка сериализации чанка %v: %w", chunk.Coords, err)
		}
		value := make([]byte, 8, 8+len(blocks))
		binary.BigEndian.PutUint64(value, chunk.Timestamp)
		value = append(value, blocks...)
		if err := wb.Set(chunkKey(chunk.Coords), value); err != nil {
			return fmt.Errorf("ошибка записи чанка %v: %w", chunk.Coords, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// LoadChunk загружает чанк. false означает, что чанк не сохранялся.
func (ws *WorldStorage) LoadChunk(coords vec.Vec3) (*world.Chunk, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, false, ErrStorageClosed
	}

	var data []byte
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(coords))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	if len(data) < 8 {
		return nil, false, fmt.Errorf("повреждена запись чанка %v", coords)
	}

	chunk, err := protocol.DecodeChunkBlocks(coords, data[8:])
	if err != nil {
		return nil, false, fmt.Errorf("ошибка десериализации чанка %v: %w", coords, err)
	}
	chunk.Timestamp = binary.BigEndian.Uint64(data[:8])
	return chunk, true, nil
}

// ChunkCount возвращает количество сохранённых чанков
func (ws *WorldStorage) ChunkCount() (int, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, ErrStorageClosed
	}

	count := 0
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Seed возвращает сохранённое зерно мира
func (ws *WorldStorage) Seed() (int64, bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return 0, false, ErrStorageClosed
	}

	var seed int64
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(seedKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("повреждено зерно мира")
			}
			seed = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return seed, true, nil
}

// SetSeed сохраняет зерно мира
func (ws *WorldStorage) SetSeed(seed int64) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return ErrStorageClosed
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(seed))
	return ws.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(seedKey), buf)
	})
}

// LoadingGenerator сначала ищет чанк в хранилище и только потом генерирует
type LoadingGenerator struct {
	Storage  *WorldStorage
	Fallback world.Generator
}

// GenerateChunk реализует world.Generator
func (g *LoadingGenerator) GenerateChunk(coord vec.Vec3, seed int64) *world.Chunk {
	chunk, ok, err := g.Storage.LoadChunk(coord)
	if err != nil {
		logging.GetStorageLogger().Warn("⚠️ Чанк %v не загружен, будет сгенерирован заново: %v", coord, err)
	}
	if ok {
		return chunk
	}
	return g.Fallback.GenerateChunk(coord, seed)
}
