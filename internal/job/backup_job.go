package job

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mblog/internal/filestore"
)

// Snapshotter is a record collection that can be copied out as raw bytes.
type Snapshotter interface {
	Name() string
	Snapshot(ctx context.Context) ([]byte, error)
}

type BackupJob struct {
	sources []Snapshotter
	store   filestore.Store
	now     func() time.Time
}

func NewBackupJob(store filestore.Store, sources ...Snapshotter) *BackupJob {
	return &BackupJob{sources: sources, store: store, now: time.Now}
}

func (j *BackupJob) Name() string {
	return "backup"
}

// Run copies every source to <name>/<yyyymmdd-hhmmss>.json and reads each
// copy back. A failing source does not stop the others.
func (j *BackupJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	stamp := j.now().UTC().Format("20060102-150405")
	var errs []error
	for _, src := range j.sources {
		key := path.Join(src.Name(), stamp+".json")
		if err := j.backup(ctx, src, key); err != nil {
			errs = append(errs, fmt.Errorf("backup %s: %w", src.Name(), err))
			continue
		}
		logutil.GetLogger(ctx).Info("collection backed up",
			zap.String("collection", src.Name()),
			zap.String("key", key),
			zap.String("store", j.store.Type()),
		)
	}
	return errors.Join(errs...)
}

func (j *BackupJob) backup(ctx context.Context, src Snapshotter, key string) error {
	data, err := src.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := j.store.Save(ctx, key, bytes.NewReader(data), int64(len(data))); err != nil {
		return err
	}
	return j.verify(ctx, key, data)
}

// verify reads key back and compares it with what was written.
func (j *BackupJob) verify(ctx context.Context, key string, want []byte) error {
	rc, err := j.store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("read back %s: %w", key, err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read back %s: %w", key, err)
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("read back %s: %d bytes stored, %d expected", key, len(got), len(want))
	}
	return nil
}
