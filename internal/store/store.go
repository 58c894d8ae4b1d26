// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/Parhamfakhar1/lumix-bci/internal/core"
)

// Tables accepted by Save and Load.
const (
	TableEEG    = "eeg"
	TableFMRI   = "fmri"
	TableOpto   = "opto"
	TableQuery  = "query"
	TableAnswer = "answer"
)

var tables = []string{TableEEG, TableFMRI, TableOpto, TableQuery, TableAnswer}

type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
	// Level is the zstd level: fastest, default, better or best.
	Level string `yaml:"level"`
}

func DefaultConfig() Config {
	return Config{
		Path:      "brain.db",
		CacheSize: 256,
		Level:     "default",
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Path == "" {
		c.Path = d.Path
	}
	if c.CacheSize == 0 {
		c.CacheSize = d.CacheSize
	}
	if c.Level == "" {
		c.Level = d.Level
	}
	return c
}

func (c Config) Validate() error {
	if c.CacheSize < 1 {
		return fmt.Errorf("store: cache_size must be positive")
	}
	if _, err := encoderLevel(c.Level); err != nil {
		return err
	}
	return nil
}

func encoderLevel(name string) (zstd.EncoderLevel, error) {
	switch name {
	case "fastest":
		return zstd.SpeedFastest, nil
	case "", "default":
		return zstd.SpeedDefault, nil
	case "better":
		return zstd.SpeedBetterCompression, nil
	case "best":
		return zstd.SpeedBestCompression, nil
	}
	return 0, fmt.Errorf("store: unknown compression level %q", name)
}

type cacheKey struct {
	table string
	id    int64
}

// Store - SQLite persistence for frames and query results.
// Blobs are zstd-compressed at rest; recent loads are served from an LRU.
type Store struct {
	db    *sql.DB
	enc   *zstd.Encoder
	dec   *zstd.Decoder
	cache *lru.Cache[cacheKey, []byte]
	codec core.Codec

	mu     sync.RWMutex
	closed bool
}

// Open creates the database file if needed and ensures every table exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := encoderLevel(cfg.Level)

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, table := range tables {
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY, data BLOB NOT NULL)", table)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	cache, err := lru.New[cacheKey, []byte](cfg.CacheSize)
	if err != nil {
		enc.Close()
		dec.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	log.Info().Str("component", "store").Str("path", cfg.Path).Msg("Database opened")
	return &Store{db: db, enc: enc, dec: dec, cache: cache}, nil
}

func checkTable(op, table string) error {
	for _, t := range tables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown table %q", op, table)
}

// Save inserts blob into table and returns the new row id.
func (s *Store) Save(ctx context.Context, table string, blob []byte) (int64, error) {
	if err := checkTable("store.Save", table); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, core.Closed("store.Save")
	}

	packed := s.enc.EncodeAll(blob, nil)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("INSERT INTO %s (data) VALUES (?)", table), packed)
	if err != nil {
		return 0, core.Collaborator("store.Save", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, core.Collaborator("store.Save", err)
	}

	s.cache.Add(cacheKey{table, id}, append([]byte(nil), blob...))
	log.Debug().Str("component", "store").Str("table", table).Int64("id", id).Int("bytes", len(blob)).Int("stored", len(packed)).Msg("Blob saved")
	return id, nil
}

// Load returns the blob stored under id. found is false when no such row exists.
func (s *Store) Load(ctx context.Context, table string, id int64) (blob []byte, found bool, err error) {
	if err := checkTable("store.Load", table); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, core.Closed("store.Load")
	}

	key := cacheKey{table, id}
	if cached, ok := s.cache.Get(key); ok {
		return append([]byte(nil), cached...), true, nil
	}

	var packed []byte
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE id = ?", table), id)
	if err := row.Scan(&packed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, core.Collaborator("store.Load", err)
	}
	blob, err = s.dec.DecodeAll(packed, nil)
	if err != nil {
		return nil, false, core.Collaborator("store.Load", fmt.Errorf("decompress %s/%d: %w", table, id, err))
	}

	s.cache.Add(key, append([]byte(nil), blob...))
	return blob, true, nil
}

// SaveFrame stores the encoded frame in the table named after its modality.
func (s *Store) SaveFrame(ctx context.Context, f core.Frame) (int64, error) {
	return s.Save(ctx, string(f.Modality()), s.codec.Encode(f))
}

// LoadFrame reads a frame saved by SaveFrame. The shape is not stored and
// must be supplied by the caller.
func (s *Store) LoadFrame(ctx context.Context, modality core.Modality, shape []int, id int64) (core.Frame, bool, error) {
	blob, found, err := s.Load(ctx, string(modality), id)
	if err != nil || !found {
		return core.Frame{}, found, err
	}
	f, err := s.codec.Decode(blob, modality, shape)
	if err != nil {
		return core.Frame{}, false, err
	}
	return f, true, nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	if err := checkTable("store.Count", table); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, core.Closed("store.Count")
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n); err != nil {
		return 0, core.Collaborator("store.Count", err)
	}
	return n, nil
}

// Tables lists the tables Save and Load accept.
func Tables() []string {
	return append([]string(nil), tables...)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.dec.Close()
	s.cache.Purge()
	return errors.Join(s.enc.Close(), s.db.Close())
}
