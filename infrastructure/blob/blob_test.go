package blob

import (
	"bytes"
	"context"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

var (
	pngHeader = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)
	mp3Header = append([]byte("ID3"), bytes.Repeat([]byte{0}, 64)...)
)

func newDiskStore(t *testing.T, maxBytes int64) (*DiskStore, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewDiskStore(logs.GetLoggerFromLevel(slog.LevelDebug), root, maxBytes)
	require.NoError(t, err)
	return store, root
}

func TestKindOf(t *testing.T) {
	req := require.New(t)

	kind, err := KindOf("image/PNG")
	req.NoError(err)
	req.Equal(domain.FileImage, kind)

	kind, err = KindOf("video/quicktime")
	req.NoError(err)
	req.Equal(domain.FileVideo, kind)

	kind, err = KindOf("audio/webm; codecs=opus")
	req.NoError(err)
	req.Equal(domain.FileAudio, kind)

	_, err = KindOf("application/pdf")
	req.ErrorIs(err, errors.ErrUnsupportedMedia)
	_, err = KindOf("")
	req.ErrorIs(err, errors.ErrUnsupportedMedia)
}

func TestDiskStore_Put_Image_Goes_To_Scope_Folder(t *testing.T) {
	req := require.New(t)
	store, root := newDiskStore(t, 1<<20)

	// When uploading a png for a group conversation
	ref, err := store.Put(context.Background(), ScopeGroup, "holiday photo.png", "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader)))

	// Then it lands under /uploads/groups with a unique prefix
	req.NoError(err)
	req.Equal(domain.FileImage, ref.Kind)
	req.Equal("holiday_photo.png", ref.OriginalName)
	req.True(strings.HasPrefix(ref.URL, "/uploads/groups/"))
	req.True(strings.HasSuffix(ref.URL, "_holiday_photo.png"))

	stored, err := os.ReadFile(filepath.Join(root, strings.TrimPrefix(ref.URL, URLPrefix)))
	req.NoError(err)
	req.Equal(pngHeader, stored)
}

func TestDiskStore_Put_Audio_Always_Goes_To_Audio(t *testing.T) {
	req := require.New(t)
	store, _ := newDiskStore(t, 1<<20)

	ref, err := store.Put(context.Background(), ScopeDirect, "note.mp3", "audio/mpeg", bytes.NewReader(mp3Header), int64(len(mp3Header)))

	req.NoError(err)
	req.Equal(domain.FileAudio, ref.Kind)
	req.True(strings.HasPrefix(ref.URL, "/uploads/audio/"))
}

func TestDiskStore_Put_Rejections(t *testing.T) {
	req := require.New(t)
	store, root := newDiskStore(t, 32)
	ctx := context.Background()

	// Declared type outside the allow-list
	_, err := store.Put(ctx, ScopeDirect, "doc.pdf", "application/pdf", bytes.NewReader([]byte("%PDF-1.4")), 8)
	req.ErrorIs(err, errors.ErrUnsupportedMedia)

	// Declared audio but the content is a png
	_, err = store.Put(ctx, ScopeDirect, "fake.mp3", "audio/mpeg", bytes.NewReader(pngHeader[:16]), 16)
	req.ErrorIs(err, errors.ErrUnsupportedMedia)

	// Larger than the limit
	_, err = store.Put(ctx, ScopeDirect, "big.png", "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	req.ErrorIs(err, errors.ErrFileTooLarge)

	// Declared size lies about the actual content
	_, err = store.Put(ctx, ScopeDirect, "liar.png", "image/png", bytes.NewReader(pngHeader), 16)
	req.ErrorIs(err, errors.ErrFileTooLarge)

	// Empty upload
	_, err = store.Put(ctx, ScopeDirect, "empty.png", "image/png", bytes.NewReader(nil), 0)
	req.ErrorIs(err, errors.ErrInvalidRequest)

	// Nothing was left behind
	entries, err := os.ReadDir(filepath.Join(root, "messages"))
	if err == nil {
		req.Empty(entries)
	}
}

func TestDiskStore_Handler_Serves_Uploads(t *testing.T) {
	req := require.New(t)
	store, _ := newDiskStore(t, 1<<20)
	ref, err := store.Put(context.Background(), ScopeDirect, "a.png", "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader)))
	req.NoError(err)

	rec := httptest.NewRecorder()
	store.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ref.URL, nil))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal(pngHeader, rec.Body.Bytes())
}

func TestCleanName_Strips_Directories(t *testing.T) {
	req := require.New(t)
	req.Equal("passwd", cleanName("../../etc/passwd"))
	req.Equal("x.png", cleanName(`C:\Users\me\x.png`))
	req.Equal("file", cleanName(""))
}

func TestMinioStore_Put(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	req := require.New(t)
	ctx := context.Background()
	store, err := NewMinioStore(ctx, logs.GetLoggerFromLevel(slog.LevelDebug), endpoint,
		os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), "messenger-test", false, 1<<20)
	req.NoError(err)

	ref, err := store.Put(ctx, ScopeDirect, "a.png", "image/png", bytes.NewReader(pngHeader), int64(len(pngHeader)))

	req.NoError(err)
	req.Equal(domain.FileImage, ref.Kind)
	req.Contains(ref.URL, "messages/")
}
