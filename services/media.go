package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// MediaKind selects the directory and accepted formats for an upload.
type MediaKind string

const (
	MediaProfilePicture MediaKind = "profile_pics"
	MediaVoiceNote      MediaKind = "voice_notes"
)

var allowedExtensions = map[MediaKind]map[string]bool{
	MediaProfilePicture: {"png": true, "jpg": true, "jpeg": true, "gif": true},
	MediaVoiceNote:      {"mp3": true, "wav": true, "ogg": true, "webm": true},
}

// AllowedExtensions lists the accepted extensions for kind, sorted.
func AllowedExtensions(kind MediaKind) []string {
	exts := make([]string, 0, len(allowedExtensions[kind]))
	for ext := range allowedExtensions[kind] {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// MediaURL is the public path a stored reference is served from.
func MediaURL(kind MediaKind, ref string) string {
	return "/uploads/" + string(kind) + "/" + ref
}

// BlobReleaser deletes stored blobs. Lifecycle operations depend on this
// rather than on *MediaStore.
type BlobReleaser interface {
	Release(ctx context.Context, kind MediaKind, ref string) error
}

// MediaStore keeps uploaded files on local disk under root/<kind>/<ref>.
type MediaStore struct {
	root     string
	maxBytes int64
}

// NewMediaStore returns a store rooted at root accepting files up to maxBytes.
func NewMediaStore(root string, maxBytes int64) *MediaStore {
	return &MediaStore{root: root, maxBytes: maxBytes}
}

// MaxBytes is the per-file size limit.
func (m *MediaStore) MaxBytes() int64 { return m.maxBytes }

// Root is the directory served under /uploads.
func (m *MediaStore) Root() string { return m.root }

// EnsureDirs creates the per-kind directories.
func (m *MediaStore) EnsureDirs() error {
	for kind := range allowedExtensions {
		if err := os.MkdirAll(filepath.Join(m.root, string(kind)), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Path is the on-disk location of ref.
func (m *MediaStore) Path(kind MediaKind, ref string) string {
	return filepath.Join(m.root, string(kind), ref)
}

// Store validates the extension of filename and the size of r, then writes the
// bytes under a fresh random reference which it returns. size is the declared
// length; pass -1 when unknown.
func (m *MediaStore) Store(ctx context.Context, r io.Reader, filename string, size int64, kind MediaKind) (string, error) {
	allowed, ok := allowedExtensions[kind]
	if !ok {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" || !allowed[ext] {
		return "", newError(KindUnsupportedFormat, "unsupported file format, allowed: %s", strings.Join(AllowedExtensions(kind), ", "))
	}
	if m.maxBytes > 0 && size > m.maxBytes {
		return "", tooLarge(m.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(m.root, string(kind))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ref := strings.ReplaceAll(uuid.NewString(), "-", "") + "." + ext
	dst := filepath.Join(dir, ref)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	src := r
	if m.maxBytes > 0 {
		src = &io.LimitedReader{R: r, N: m.maxBytes + 1}
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && m.maxBytes > 0 && n > m.maxBytes {
		err = tooLarge(m.maxBytes)
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return ref, nil
}

// Release deletes the blob behind ref. A missing file is not an error; refs
// that try to escape the kind directory are refused.
func (m *MediaStore) Release(_ context.Context, kind MediaKind, ref string) error {
	if ref == "" {
		return nil
	}
	if strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." {
		return newError(KindInvalidInput, "invalid media reference %q", ref)
	}
	if err := os.Remove(m.Path(kind, ref)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func tooLarge(limit int64) *AppError {
	return newError(KindPayloadTooLarge, "file exceeds the %d MB limit", limit/(1024*1024))
}
