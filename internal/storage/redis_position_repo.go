package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/blockverse/internal/logging"
)

// RedisPositionRepo хранит состояние игроков в Redis.
// Save пишет в буфер, который сбрасывается пайплайном по таймеру или при заполнении.
type RedisPositionRepo struct {
	client      *redis.Client
	keyPrefix   string
	ttl         time.Duration
	batchSize   int
	batchMu     sync.Mutex
	batchBuffer map[uint64]PlayerState
	batchTicker *time.Ticker
	shutdown    chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr         string        // Адрес Redis сервера
	Password     string        // Пароль (пустой если не требуется)
	DB           int           // Номер базы данных
	KeyPrefix    string        // Префикс для ключей
	TTL          time.Duration // Время жизни записей, 0 - без ограничения
	BatchSize    int           // Размер батча для записи
	BatchFlushMs int           // Интервал сброса батча в миллисекундах
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		KeyPrefix:    "blockverse:player:",
		TTL:          7 * 24 * time.Hour,
		BatchSize:    100,
		BatchFlushMs: 500,
	}
}

// NewRedisPositionRepo подключается к Redis и запускает фоновый сброс батчей
func NewRedisPositionRepo(ctx context.Context, config *RedisConfig) (*RedisPositionRepo, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.BatchFlushMs <= 0 {
		config.BatchFlushMs = 500
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", config.Addr, err)
	}

	repo := &RedisPositionRepo{
		client:      client,
		keyPrefix:   config.KeyPrefix,
		ttl:         config.TTL,
		batchSize:   config.BatchSize,
		batchBuffer: make(map[uint64]PlayerState),
		batchTicker: time.NewTicker(time.Duration(config.BatchFlushMs) * time.Millisecond),
		shutdown:    make(chan struct{}),
	}

	repo.wg.Add(1)
	go repo.batchFlusher()

	logging.GetStorageLogger().Info("🔴 Подключено к Redis %s", config.Addr)
	return repo, nil
}

func (r *RedisPositionRepo) key(playerID uint64) string {
	return r.keyPrefix + strconv.FormatUint(playerID, 10)
}

// Save добавляет состояние в буфер записи
func (r *RedisPositionRepo) Save(ctx context.Context, playerID uint64, st PlayerState) error {
	if err := validateState(playerID, st); err != nil {
		return err
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}

	r.batchMu.Lock()
	r.batchBuffer[playerID] = st
	if len(r.batchBuffer) >= r.batchSize {
		batch := r.batchBuffer
		r.batchBuffer = make(map[uint64]PlayerState)
		r.batchMu.Unlock()
		return r.flushBatch(ctx, batch)
	}
	r.batchMu.Unlock()
	return nil
}

// Load возвращает состояние игрока. Ещё не сброшенный буфер имеет приоритет.
func (r *RedisPositionRepo) Load(ctx context.Context, playerID uint64) (PlayerState, bool, error) {
	if playerID == 0 {
		return PlayerState{}, false, ErrInvalidPlayerID
	}

	r.batchMu.Lock()
	st, ok := r.batchBuffer[playerID]
	r.batchMu.Unlock()
	if ok {
		return st, true, nil
	}

	data, err := r.client.Get(ctx, r.key(playerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PlayerState{}, false, nil
	}
	if err != nil {
		return PlayerState{}, false, fmt.Errorf("ошибка чтения состояния игрока %d: %w", playerID, err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return PlayerState{}, false, fmt.Errorf("ошибка разбора состояния игрока %d: %w", playerID, err)
	}
	return st, true, nil
}

// Delete удаляет состояние из буфера и из Redis
func (r *RedisPositionRepo) Delete(ctx context.Context, playerID uint64) error {
	if playerID == 0 {
		return ErrInvalidPlayerID
	}

	r.batchMu.Lock()
	_, buffered := r.batchBuffer[playerID]
	delete(r.batchBuffer, playerID)
	r.batchMu.Unlock()

	n, err := r.client.Del(ctx, r.key(playerID)).Result()
	if err != nil {
		return fmt.Errorf("ошибка удаления состояния игрока %d: %w", playerID, err)
	}
	if n == 0 && !buffered {
		return fmt.Errorf("игрок %d: %w", playerID, ErrNotFound)
	}
	return nil
}

// BatchSave записывает состояния сразу, минуя буфер
func (r *RedisPositionRepo) BatchSave(ctx context.Context, states map[uint64]PlayerState) error {
	for id, st := range states {
		if err := validateState(id, st); err != nil {
			return err
		}
	}
	return r.flushBatch(ctx, states)
}

// Count возвращает количество сохранённых игроков (SCAN по префиксу)
func (r *RedisPositionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, r.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта игроков: %w", err)
	}
	return count, nil
}

// Close сбрасывает буфер и закрывает соединение
func (r *RedisPositionRepo) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.shutdown)
		r.wg.Wait()
		r.batchTicker.Stop()

		r.batchMu.Lock()
		batch := r.batchBuffer
		r.batchBuffer = make(map[uint64]PlayerState)
		r.batchMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if ferr := r.flushBatch(ctx, batch); ferr != nil {
			logging.GetStorageLogger().Error("❌ Не удалось сбросить буфер Redis при закрытии: %v", ferr)
		}
		err = r.client.Close()
	})
	return err
}

func (r *RedisPositionRepo) batchFlusher() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			return
		case <-r.batchTicker.C:
			r.batchMu.Lock()
			if len(r.batchBuffer) == 0 {
				r.batchMu.Unlock()
				continue
			}
			batch := r.batchBuffer
			r.batchBuffer = make(map[uint64]PlayerState)
			r.batchMu.Unlock()

			if err := r.flushBatch(context.Background(), batch); err != nil {
				logging.GetStorageLogger().Error("❌ Ошибка сброса батча Redis: %v", err)
			}
		}
	}
}

func (r *RedisPositionRepo) flushBatch(ctx context.Context, batch map[uint64]PlayerState) error {
	if len(batch) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for id, st := range batch {
		data, err := json.Marshal(st)
		if err != nil {
			logging.GetStorageLogger().Warn("⚠️ Не удалось сериализовать состояние игрока %d: %v", id, err)
			continue
		}
		pipe.Set(ctx, r.key(id), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ошибка выполнения батча: %w", err)
	}
	return nil
}
