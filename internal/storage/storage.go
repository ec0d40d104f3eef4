package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ncanimate/internal/fileutil"
	"ncanimate/internal/services"
)

// ErrUnsupportedScheme is returned for destinations other than file:// URIs
// and plain paths.
var ErrUnsupportedScheme = errors.New("unsupported storage scheme")

// Artifact describes a stored output.
type Artifact struct {
	URI          string
	Size         int64
	LastModified time.Time
}

// Store uploads artifacts and reports on existing ones.
type Store interface {
	Upload(ctx context.Context, localPath, uri string) error
	Stat(ctx context.Context, uri string) (*Artifact, error)
	Delete(ctx context.Context, uri string) error
}

// FileStore stores artifacts on the local filesystem.
type FileStore struct{}

// NewFileStore returns a local filesystem store.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Upload copies localPath to uri with size and checksum verification. The
// copy is written next to the destination and renamed into place so readers
// never see a partial artifact.
func (s *FileStore) Upload(ctx context.Context, localPath, uri string) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	dst, err := LocalPath(uri)
	if err != nil {
		return err
	}
	tmp := dst + ".part"
	if err := fileutil.CopyFileVerified(localPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "storage", "upload", fmt.Sprintf("%s -> %s", localPath, uri), err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return services.Wrap(services.ErrTransient, "storage", "upload", fmt.Sprintf("rename into %s", dst), err)
	}
	return nil
}

// Stat returns the artifact at uri, or nil when it does not exist.
func (s *FileStore) Stat(_ context.Context, uri string) (*Artifact, error) {
	path, err := LocalPath(uri)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", uri, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("stat %s: is a directory", uri)
	}
	return &Artifact{URI: uri, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// Delete removes the artifact at uri. Missing artifacts are ignored.
func (s *FileStore) Delete(_ context.Context, uri string) error {
	path, err := LocalPath(uri)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", uri, err)
	}
	return nil
}

// LocalPath converts a file:// URI or a plain absolute path to a filesystem
// path.
func LocalPath(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve", "empty destination", nil)
	}
	if !strings.Contains(uri, "://") {
		return filepath.Clean(uri), nil
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "storage", "resolve", uri, err)
	}
	if parsed.Scheme != "file" {
		return "", services.Wrap(services.ErrConfiguration, "storage", "resolve", uri, fmt.Errorf("%w %q", ErrUnsupportedScheme, parsed.Scheme))
	}
	if parsed.Host != "" && parsed.Host != "localhost" {
		return "", services.Wrap(services.ErrConfiguration, "storage", "resolve", uri, fmt.Errorf("%w: remote host %q", ErrUnsupportedScheme, parsed.Host))
	}
	return filepath.Clean(parsed.Path), nil
}
