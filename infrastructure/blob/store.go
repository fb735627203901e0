//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../../mocks/mock_blob_store.go -package=mocks
package blob

import (
	"bytes"
	"context"
	"io"
	"messenger/domain"
	"messenger/errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Scope tells which conversation type an upload belongs to.
type Scope string

const (
	ScopeDirect Scope = "messages"
	ScopeGroup  Scope = "groups"
)

// IStore turns an uploaded file into a FileRef that messages can carry.
type IStore interface {
	Put(ctx context.Context, scope Scope, originalName, declaredMIME string, r io.Reader, size int64) (domain.FileRef, error)
}

// upload is a checked file ready to be written by a backend.
type upload struct {
	kind         domain.FileKind
	key          string
	contentType  string
	originalName string
	body         io.Reader
	size         int64
}

// prepare runs every check shared by the backends before anything is written:
// size, declared type, then sniffed content.
func prepare(scope Scope, originalName, declaredMIME string, r io.Reader, size, maxBytes int64) (upload, error) {
	if size <= 0 {
		return upload{}, errors.ErrInvalidRequest
	}
	if size > maxBytes {
		return upload{}, errors.ErrFileTooLarge
	}
	kind, err := KindOf(declaredMIME)
	if err != nil {
		return upload{}, err
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return upload{}, errors.Unavailable(err)
	}
	head = head[:n]
	if !Matches(kind, head) {
		return upload{}, errors.ErrUnsupportedMedia
	}

	name := cleanName(originalName)
	return upload{
		kind:         kind,
		key:          folder(kind, scope) + "/" + uuid.NewString() + "_" + name,
		contentType:  strings.ToLower(declaredMIME),
		originalName: name,
		// One byte past the limit is enough to notice a lying Content-Length
		body: io.LimitReader(io.MultiReader(bytes.NewReader(head), r), maxBytes+1),
		size: size,
	}, nil
}

// cleanName keeps the base name only so a crafted name cannot escape the folder.
func cleanName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == "/" || base == "" {
		return "file"
	}
	return base
}
