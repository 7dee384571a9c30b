package transient

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const levelKeyPrefix = "t:"

// LevelStore persists records in a LevelDB directory. Values are stored as
// an 8-byte big-endian expiry (unix nanoseconds, 0 for none) followed by
// the payload.
type LevelStore struct {
	db   *leveldb.DB
	opts options
}

// OpenLevelStore opens or creates the LevelDB database at path.
func OpenLevelStore(path string, opts ...Option) (*LevelStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("leveldb store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelStore{db: db, opts: buildOptions(opts)}, nil
}

func (l *LevelStore) Get(_ context.Context, key string) (Record, bool, error) {
	raw, err := l.db.Get([]byte(levelKeyPrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get transient %q: %w", key, err)
	}
	record, err := decodeLevelRecord(key, raw)
	if err != nil {
		return Record{}, false, err
	}
	if record.Expired(l.opts.now()) {
		return Record{}, false, nil
	}
	return record, true, nil
}

func (l *LevelStore) Set(_ context.Context, record Record) error {
	if err := l.db.Put([]byte(levelKeyPrefix+record.Key), encodeLevelRecord(record), nil); err != nil {
		return fmt.Errorf("set transient %q: %w", record.Key, err)
	}
	return nil
}

func (l *LevelStore) Delete(_ context.Context, key string) error {
	if err := l.db.Delete([]byte(levelKeyPrefix+key), nil); err != nil {
		return fmt.Errorf("delete transient %q: %w", key, err)
	}
	return nil
}

func (l *LevelStore) Keys(_ context.Context) ([]string, error) {
	it := l.db.NewIterator(util.BytesPrefix([]byte(levelKeyPrefix)), nil)
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, strings.TrimPrefix(string(it.Key()), levelKeyPrefix))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("list transients: %w", err)
	}
	return keys, nil
}

func (l *LevelStore) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func encodeLevelRecord(record Record) []byte {
	buf := make([]byte, 8+len(record.Value))
	var expires int64
	if !record.ExpiresAt.IsZero() {
		expires = record.ExpiresAt.UnixNano()
	}
	binary.BigEndian.PutUint64(buf[:8], uint64(expires))
	copy(buf[8:], record.Value)
	return buf
}

func decodeLevelRecord(key string, raw []byte) (Record, error) {
	if len(raw) < 8 {
		return Record{}, fmt.Errorf("decode transient %q: short record", key)
	}
	record := Record{Key: key, Value: append([]byte(nil), raw[8:]...)}
	if expires := int64(binary.BigEndian.Uint64(raw[:8])); expires > 0 {
		record.ExpiresAt = time.Unix(0, expires)
	}
	return record, nil
}
