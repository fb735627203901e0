package blob

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"net/http"
	"os"
	"path/filepath"
)

// URLPrefix is the public path DiskStore files are served under.
const URLPrefix = "/uploads/"

// DiskStore keeps uploads under a local directory and serves them back over HTTP.
type DiskStore struct {
	log      *slog.Logger
	root     string
	maxBytes int64
}

func NewDiskStore(log *slog.Logger, root string, maxBytes int64) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", root, err)
	}
	return &DiskStore{log: log, root: root, maxBytes: maxBytes}, nil
}

func (d *DiskStore) Put(ctx context.Context, scope Scope, originalName, declaredMIME string, r io.Reader, size int64) (domain.FileRef, error) {
	up, err := prepare(scope, originalName, declaredMIME, r, size, d.maxBytes)
	if err != nil {
		return domain.FileRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.FileRef{}, err
	}

	path := filepath.Join(d.root, filepath.FromSlash(up.key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.FileRef{}, errors.Unavailable(err)
	}
	file, err := os.Create(path)
	if err != nil {
		return domain.FileRef{}, errors.Unavailable(err)
	}
	written, err := io.Copy(file, up.body)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return domain.FileRef{}, errors.Unavailable(err)
	}
	if written > d.maxBytes {
		_ = os.Remove(path)
		return domain.FileRef{}, errors.ErrFileTooLarge
	}

	d.log.Debug("Upload stored", "path", path, "kind", up.kind, "bytes", written)
	return domain.FileRef{URL: URLPrefix + up.key, Kind: up.kind, OriginalName: up.originalName}, nil
}

// Handler serves stored files. Mount it on URLPrefix.
func (d *DiskStore) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(http.Dir(d.root)))
}
