// Package blob хранит загруженные файлы. Сейчас есть только локальный диск.
package blob

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var ErrBadKey = errors.New("bad blob key")

// Local кладёт файлы под Root в раскладке YYYY/MM/<ulid>.
type Local struct {
	Root string

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewLocal(root string) *Local {
	return &Local{Root: root, entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
}

// New выбирает хранилище по имени драйвера из конфигурации.
func New(driver, root string) (*Local, error) {
	switch strings.ToLower(driver) {
	case "", "local":
		if root == "" {
			return nil, fmt.Errorf("blob: files_root is empty")
		}
		return NewLocal(root), nil
	}
	return nil, fmt.Errorf("blob: unknown driver %q", driver)
}

func (s *Local) newKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), s.entropy)
	return fmt.Sprintf("%04d/%02d/%s", now.Year(), int(now.Month()), strings.ToLower(id.String()))
}

// path не выпускает ключ за пределы Root.
func (s *Local) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return filepath.Join(s.Root, clean), nil
}

// Put сохраняет поток. Пустой key генерируется. Возвращает ключ, размер и sha256.
func (s *Local) Put(key string, r io.Reader) (string, int64, string, error) {
	if key == "" {
		key = s.newKey()
	}
	full, err := s.path(key)
	if err != nil {
		return "", 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, "", err
	}
	f, err := os.Create(full)
	if err != nil {
		return "", 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		_ = os.Remove(full)
		return "", 0, "", err
	}
	return key, n, hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Local) Open(key string) (*os.File, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *Local) Delete(key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Path: путь к файлу на диске для отдачи через http.
func (s *Local) Path(key string) (string, error) { return s.path(key) }
