// Package checkpoint persists one cursor per stream: the highest record
// timestamp already emitted. Loads fail soft, saves fail loud.
package checkpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cschmidt0121/TA-DUOSecurity2FA/internal/logging"
)

var ErrSave = errors.New("checkpoint: save failed")

// Cursor is a loaded checkpoint. Valid is false when nothing was stored yet,
// which is a different state from Value == 0.
type Cursor struct {
	Value int64
	Valid bool
}

func (c Cursor) String() string {
	if !c.Valid {
		return "none"
	}
	return strconv.FormatInt(c.Value, 10)
}

type Store interface {
	Load(key string) Cursor
	Save(key string, ts int64) error
}

// FileStore keeps each cursor in <dir>/<key> as base-10 text.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func (s *FileStore) Load(key string) Cursor {
	p := s.path(key)
	raw, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.L().Info("no checkpoint stored", "stream", key, "file", p)
		} else {
			logging.L().Warn("checkpoint unreadable, treating as first run", "stream", key, "file", p, "err", err)
		}
		return Cursor{}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	// MaxInt64 leaves no room for the next lower bound (cursor+1).
	if err != nil || v < 0 || v == math.MaxInt64 {
		logging.L().Warn("checkpoint content invalid, treating as first run", "stream", key, "file", p, "content", string(raw))
		return Cursor{}
	}
	logging.L().Info("loaded checkpoint", "stream", key, "file", p, "last", time.Unix(v, 0).UTC().Format(time.RFC3339))
	return Cursor{Value: v, Valid: true}
}

func (s *FileStore) Save(key string, ts int64) error {
	if ts < 0 {
		return fmt.Errorf("%w: %s: negative timestamp %d", ErrSave, key, ts)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSave, key, err)
	}
	if err := writeAtomic(s.path(key), []byte(strconv.FormatInt(ts, 10)), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSave, key, err)
	}
	return nil
}

// writeAtomic writes to a temp file in the same directory and renames it over
// the target, so a crash leaves either the old or the new cursor.
func writeAtomic(name string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
