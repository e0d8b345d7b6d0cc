package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/platter/config"
	"github.com/shashiranjanraj/platter/pkg/cache"
	"github.com/shashiranjanraj/platter/pkg/crypt"
	"github.com/shashiranjanraj/platter/pkg/database"
	"github.com/shashiranjanraj/platter/pkg/event"
)

// Open builds the Store named by SESSION_DRIVER and loads a Session from it.
func Open(ctx context.Context, bus *event.Bus) (*Session, error) {
	store, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, store, bus)
}

// OpenStore builds the configured driver. Sessions are keyed by SESSION_NAME
// (default "default") in the shared drivers.
func OpenStore(ctx context.Context) (Store, error) {
	name := config.Get("SESSION_NAME", "default")
	switch config.SessionDriver() {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		rdb := cache.NewRedisClient()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("session: redis ping: %w", err)
		}
		return NewRedisStore(rdb, name, 30*24*time.Hour), nil
	case "sql":
		db, err := database.Connect()
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, name)
	default:
		var sealer *crypt.Sealer
		if key := config.SessionKey(); key != "" {
			s, err := crypt.NewSealer(key)
			if err != nil {
				return nil, err
			}
			sealer = s
		}
		return NewFileStore(config.SessionPath(), sealer), nil
	}
}

// ── memory ──────────────────────────────────────────────────────────────────

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{data: map[string]string{}} }

func (m *MemoryStore) Load(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data), nil
}

func (m *MemoryStore) Save(_ context.Context, data map[string]string) error {
	m.mu.Lock()
	m.data = maps.Clone(data)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.data = map[string]string{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Driver() string { return "memory" }

// ── file ────────────────────────────────────────────────────────────────────

// FileStore keeps the session as a JSON document on disk, sealed when a
// Sealer is configured. Writes go through a temp file and rename.
type FileStore struct {
	path   string
	sealer *crypt.Sealer
}

func NewFileStore(path string, sealer *crypt.Sealer) *FileStore {
	return &FileStore{path: path, sealer: sealer}
}

func (f *FileStore) Load(context.Context) (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	data := map[string]string{}
	if f.sealer != nil {
		if err := f.sealer.OpenJSON(strings.TrimSpace(string(raw)), &data); err != nil {
			return nil, err
		}
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return data, nil
}

func (f *FileStore) Save(_ context.Context, data map[string]string) error {
	var out []byte
	if f.sealer != nil {
		enc, err := f.sealer.SealJSON(data)
		if err != nil {
			return err
		}
		out = []byte(enc)
	} else {
		b, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		out = b
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear(context.Context) error {
	err := os.Remove(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func (f *FileStore) Driver() string { return "file" }

// ── redis ───────────────────────────────────────────────────────────────────

// RedisStore keeps each session as one hash.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, name string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: "platter:session:" + name, ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context) (map[string]string, error) {
	return r.rdb.HGetAll(ctx, r.key).Result()
}

func (r *RedisStore) Save(ctx context.Context, data map[string]string) error {
	pairs := make([]interface{}, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, k, v)
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.key)
		if len(pairs) > 0 {
			p.HSet(ctx, r.key, pairs...)
			if r.ttl > 0 {
				p.Expire(ctx, r.key, r.ttl)
			}
		}
		return nil
	})
	return err
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, r.key).Err()
}

func (r *RedisStore) Driver() string { return "redis" }

// ── sql ─────────────────────────────────────────────────────────────────────

// Entry is one key of one named session.
type Entry struct {
	Session   string `gorm:"column:session_name;primaryKey;size:64"`
	Key       string `gorm:"column:entry_key;primaryKey;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "platter_session_entries" }

// SQLStore keeps a session as rows in platter_session_entries.
type SQLStore struct {
	db   *gorm.DB
	name string
}

// NewSQLStore migrates the entries table and returns the store.
func NewSQLStore(db *gorm.DB, name string) (*SQLStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("session: migrate: %w", err)
	}
	return &SQLStore{db: db, name: name}, nil
}

func (s *SQLStore) Load(ctx context.Context) (map[string]string, error) {
	var rows []Entry
	if err := s.db.WithContext(ctx).Where("session_name = ?", s.name).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *SQLStore) Save(ctx context.Context, data map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys := make([]string, 0, len(data))
		for k := range data {
			keys = append(keys, k)
		}
		stale := tx.Where("session_name = ?", s.name)
		if len(keys) > 0 {
			stale = stale.Where("entry_key NOT IN ?", keys)
		}
		if err := stale.Delete(&Entry{}).Error; err != nil {
			return err
		}
		if len(data) == 0 {
			return nil
		}
		rows := make([]Entry, 0, len(data))
		for k, v := range data {
			rows = append(rows, Entry{Session: s.name, Key: k, Value: v})
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_name"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Where("session_name = ?", s.name).Delete(&Entry{}).Error
}

func (s *SQLStore) Driver() string { return "sql" }
