// Package media is the blob store façade: it uploads video and image files to
// object storage, derives video durations, and removes blobs that are no
// longer referenced.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/metrics"
)

// ObjectStorage persists binary objects and returns their public location.
type ObjectStorage interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}

// Prober derives the duration of a media file on disk.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Kind selects the object prefix and whether a duration is probed.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Kind        Kind
	Body        io.Reader
}

// Asset is the stored form of an Upload.
type Asset struct {
	URL      string
	Duration float64
}

// Config tunes a Store.
type Config struct {
	TempDir string
}

// Store uploads media and hands stale blobs to a Reaper.
type Store struct {
	storage ObjectStorage
	prober  Prober
	reaper  *Reaper
	metrics *metrics.Metrics
	tempDir string
}

// NewStore constructs a Store. reaper and m may be nil.
func NewStore(storage ObjectStorage, prober Prober, reaper *Reaper, m *metrics.Metrics, cfg Config) *Store {
	return &Store{storage: storage, prober: prober, reaper: reaper, metrics: m, tempDir: cfg.TempDir}
}

// Put stores u. Videos are spooled to a temporary file so that their duration
// can be probed before the upload.
func (s *Store) Put(ctx context.Context, u Upload) (asset Asset, err error) {
	if s.storage == nil {
		return Asset{}, ErrStorageUnavailable
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.Uploads.WithLabelValues(string(u.Kind), metrics.Result(err)).Inc()
		}
	}()

	key := objectKey(u)
	if u.Kind != KindVideo {
		url, err := s.storage.Save(ctx, key, u.ContentType, u.Body)
		if err != nil {
			return Asset{}, err
		}
		return Asset{URL: url}, nil
	}

	if s.prober == nil {
		return Asset{}, ErrProbeUnavailable
	}

	spool, err := os.CreateTemp(s.tempDir, "vidshare-upload-*"+filepath.Ext(key))
	if err != nil {
		return Asset{}, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}()

	if _, err := io.Copy(spool, u.Body); err != nil {
		return Asset{}, fmt.Errorf("spool upload: %w", err)
	}

	duration, err := s.prober.Duration(ctx, spool.Name())
	if err != nil {
		return Asset{}, fmt.Errorf("probe duration: %w", err)
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return Asset{}, fmt.Errorf("rewind spool file: %w", err)
	}

	url, err := s.storage.Save(ctx, key, u.ContentType, spool)
	if err != nil {
		return Asset{}, err
	}
	return Asset{URL: url, Duration: duration}, nil
}

// Delete removes the blobs synchronously and reports the first failure. Empty
// locations are skipped.
func (s *Store) Delete(ctx context.Context, locations ...string) error {
	if s.storage == nil {
		return ErrStorageUnavailable
	}
	var errs []error
	for _, location := range locations {
		if location == "" {
			continue
		}
		err := s.storage.Delete(ctx, location)
		if s.metrics != nil {
			s.metrics.BlobDeletions.WithLabelValues(metrics.Result(err)).Inc()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard removes blobs that were uploaded for a write that did not commit.
// Removal happens in the background when a Reaper is attached; failures are
// logged only.
func (s *Store) Discard(ctx context.Context, locations ...string) {
	if s.reaper != nil {
		if err := s.reaper.Enqueue(ctx, locations...); err == nil {
			return
		}
	}
	if err := s.Delete(ctx, locations...); err != nil {
		logging.FromContext(ctx).Warn("discard orphaned blobs", slog.Any("locations", locations), slog.String("error", err.Error()))
	}
}

func objectKey(u Upload) string {
	prefix := "images"
	if u.Kind == KindVideo {
		prefix = "videos"
	}
	return prefix + "/" + uuid.NewString() + strings.ToLower(filepath.Ext(u.Name))
}
