// Package recordstore persists an ordered list of records as a single JSON
// array file.
//
// All mutations go through Update, which holds an in-process mutex and an
// advisory lock on "<file>.lock" for the whole load, mutate and save cycle.
// Saves write a temporary file next to the target and rename it into place,
// so readers never observe a partially written array.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/mblog/internal/pkg/errors"
)

const defaultLockRetry = 10 * time.Millisecond

type Store[T any] struct {
	name      string
	path      string
	mu        sync.Mutex
	fileLock  *flock.Flock
	lockRetry time.Duration
}

type Option func(*options)

type options struct {
	name      string
	lockRetry time.Duration
}

// WithName sets the label used in logs and backup keys. Defaults to the file
// name without extension.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithLockRetry(d time.Duration) Option {
	return func(o *options) {
		o.lockRetry = d
	}
}

// New opens the store at path, creating parent directories and an empty
// array file when none exists yet.
func New[T any](path string, opts ...Option) (*Store[T], error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("record store path is required")
	}
	cleanPath := filepath.Clean(path)
	o := &options{lockRetry: defaultLockRetry}
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		base := filepath.Base(cleanPath)
		o.name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	s := &Store[T]{
		name:      o.name,
		path:      cleanPath,
		fileLock:  flock.New(cleanPath + ".lock"),
		lockRetry: o.lockRetry,
	}
	if err := s.init(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[T]) Name() string {
	return s.name
}

func (s *Store[T]) Path() string {
	return s.path
}

func (s *Store[T]) init(ctx context.Context) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	logutil.GetLogger(ctx).Info("initializing record store", zap.String("store", s.name), zap.String("path", s.path))
	return writeFileAtomic(s.path, []byte("[]"))
}

// Load returns every record in file order.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.read()
}

// Save replaces the file content with records.
func (s *Store[T]) Save(ctx context.Context, records []T) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.write(ctx, records)
}

// Update runs one serialized read-modify-write cycle. The slice returned by
// fn is persisted; if fn fails nothing is written and its error is returned
// unchanged.
func (s *Store[T]) Update(ctx context.Context, fn func(records []T) ([]T, error)) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	records, err := s.read()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	return s.write(ctx, next)
}

// Snapshot returns the raw file bytes as of a point between two updates.
func (s *Store[T]) Snapshot(ctx context.Context) ([]byte, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *Store[T]) acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	locked, err := s.fileLock.TryLockContext(ctx, s.lockRetry)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", s.path, err)
	}
	if !locked {
		s.mu.Unlock()
		return nil, fmt.Errorf("lock %s: not acquired", s.path)
	}
	return func() {
		_ = s.fileLock.Unlock()
		s.mu.Unlock()
	}, nil
}

func (s *Store[T]) read() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	records, err := decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", appErr.ErrCorrupt, s.path, err)
	}
	return records, nil
}

func (s *Store[T]) write(ctx context.Context, records []T) error {
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("record store saved", zap.String("store", s.name), zap.Int("records", len(records)))
	return nil
}

func decode[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("content is not a json array")
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for i, raw := range raws {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// encode matches JSON.stringify(records, null, 2): two-space indent, no HTML
// escaping, raw U+2028/U+2029 and no trailing newline.
func encode[T any](records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes written by
// encoding/json back into raw characters. Escape sequences are consumed in
// pairs so an escaped backslash followed by "u2028" is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" {
			switch data[i+5] {
			case '8':
				out = append(out, "\u2028"...)
				i += 5
				continue
			case '9':
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
