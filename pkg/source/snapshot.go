package source

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/glorpus-work/caskcat/pkg/errors"
	"github.com/glorpus-work/caskcat/pkg/fsutil"
	"github.com/mholt/archives"
)

// Snapshot is the gzip-compressed copy of the last fetched catalog document.
// Its modification time is the time of the last successful refresh.
type Snapshot struct {
	Path string
}

// NewSnapshot returns the snapshot kept in cacheDir.
func NewSnapshot(cacheDir string) *Snapshot {
	return &Snapshot{Path: fsutil.SnapshotPath(cacheDir)}
}

// Write compresses data and replaces the snapshot atomically.
func (s *Snapshot) Write(data []byte) error {
	var buf bytes.Buffer
	w, err := archives.Gz{}.OpenWriter(&buf)
	if err != nil {
		return errors.Wrap(err, "failed to open gzip writer")
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "failed to compress catalog")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to compress catalog")
	}

	if err := fsutil.WriteFileAtomic(s.Path, buf.Bytes(), fsutil.FileModeDefault); err != nil {
		return errors.Wrap(errors.ErrCacheDirectory, err.Error())
	}
	return nil
}

// Read returns the decompressed catalog document. A missing snapshot is
// ErrCacheNotFound, an undecodable one ErrCacheCorrupt.
func (s *Snapshot) Read() ([]byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrCacheNotFound
		}
		return nil, errors.Wrap(err, "failed to open catalog snapshot")
	}
	defer f.Close()

	r, err := archives.Gz{}.OpenReader(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCacheCorrupt, err.Error())
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCacheCorrupt, err.Error())
	}
	return data, nil
}

// ModTime returns when the snapshot was last written.
func (s *Snapshot) ModTime() (time.Time, error) {
	stat, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, errors.ErrCacheNotFound
		}
		return time.Time{}, errors.Wrap(err, "failed to stat catalog snapshot")
	}
	return stat.ModTime(), nil
}

// Remove deletes the snapshot. A missing snapshot is not an error.
func (s *Snapshot) Remove() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove catalog snapshot")
	}
	return nil
}
