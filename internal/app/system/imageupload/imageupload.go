// internal/app/system/imageupload/imageupload.go
package imageupload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var allowedExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"gif":  "image/gif",
	"avif": "image/avif",
	"heic": "image/heic",
	"heif": "image/heif",
}

// ErrTooLarge and ErrNotImage describe why a single file was refused.
var (
	ErrTooLarge = errors.New("file is too large")
	ErrNotImage = errors.New("file is not an image")
)

// Uploaded is a file written to object storage.
type Uploaded struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Result of a multi-file save. Rejected counts files that failed
// validation and were skipped.
type Result struct {
	Files    []Uploaded
	Rejected int
}

// Uploader validates image uploads and writes them to a Store.
type Uploader struct {
	store    objstore.Store
	log      *zap.Logger
	maxBytes int64
	maxFiles int
	now      func() time.Time
}

func New(store objstore.Store, maxBytes int64, maxFiles int, log *zap.Logger) *Uploader {
	return &Uploader{store: store, log: log, maxBytes: maxBytes, maxFiles: maxFiles, now: time.Now}
}

// Store returns the backing object store.
func (u *Uploader) Store() objstore.Store { return u.store }

// Check reports whether fh is an acceptable spot image: a known image
// extension or an image/* content type, within maxBytes. It returns the
// extension and content type to store it under.
func Check(fh *multipart.FileHeader, maxBytes int64) (ext, contentType string, err error) {
	if fh == nil || fh.Size == 0 {
		return "", "", ErrNotImage
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", "", ErrTooLarge
	}

	ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	ct := headerType(fh)

	if known, ok := allowedExt[ext]; ok {
		if ct == "" || !strings.HasPrefix(ct, "image/") {
			ct = known
		}
		return ext, ct, nil
	}
	if strings.HasPrefix(ct, "image/") {
		return extFor(ct), ct, nil
	}
	return "", "", ErrNotImage
}

// CheckStrictMIME is the avatar rule: the declared content type itself
// must be image/*.
func CheckStrictMIME(fh *multipart.FileHeader, maxBytes int64) (ext, contentType string, err error) {
	if fh == nil || !strings.HasPrefix(headerType(fh), "image/") {
		return "", "", ErrNotImage
	}
	return Check(fh, maxBytes)
}

// SaveAll writes every valid file under prefix, skipping invalid ones and
// counting them. Files beyond the configured maximum are rejected too. If
// a storage write fails, everything written so far is removed and the
// error is returned.
func (u *Uploader) SaveAll(ctx context.Context, prefix string, files []*multipart.FileHeader) (Result, error) {
	var res Result
	for _, fh := range files {
		if u.maxFiles > 0 && len(res.Files) >= u.maxFiles {
			res.Rejected++
			continue
		}
		ext, ct, err := Check(fh, u.maxBytes)
		if err != nil {
			res.Rejected++
			continue
		}
		up, err := u.put(ctx, prefix, fh, ext, ct)
		if err != nil {
			u.Discard(ctx, res.Files)
			return Result{}, err
		}
		res.Files = append(res.Files, up)
	}
	return res, nil
}

// SaveAvatar validates fh with the avatar rule and writes it under
// avatars/<userID>/.
func (u *Uploader) SaveAvatar(ctx context.Context, userID string, fh *multipart.FileHeader, maxBytes int64) (Uploaded, error) {
	ext, ct, err := CheckStrictMIME(fh, maxBytes)
	if err != nil {
		return Uploaded{}, err
	}
	return u.put(ctx, "avatars/"+userID, fh, ext, ct)
}

// Discard removes previously written files best-effort. Handlers call it
// when the database write that would reference them fails.
func (u *Uploader) Discard(ctx context.Context, files []Uploaded) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.Key)
	}
	objstore.DeleteAll(ctx, u.store, u.log, keys)
}

// SpotPrefix is spots/YYYY/MM for the current month.
func (u *Uploader) SpotPrefix() string {
	now := u.now().UTC()
	return fmt.Sprintf("spots/%04d/%02d", now.Year(), now.Month())
}

func (u *Uploader) put(ctx context.Context, prefix string, fh *multipart.FileHeader, ext, ct string) (Uploaded, error) {
	f, err := fh.Open()
	if err != nil {
		return Uploaded{}, err
	}
	defer f.Close()

	key := prefix + "/" + uuid.NewString() + "." + ext
	if err := objstore.Put(ctx, u.store, key, f, ct); err != nil {
		return Uploaded{}, fmt.Errorf("store %s: %w", key, err)
	}
	return Uploaded{Key: key, URL: u.store.URL(key), ContentType: ct, Size: fh.Size}, nil
}

func headerType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(mt)
	}
	return ""
}

func extFor(ct string) string {
	sub := strings.TrimPrefix(ct, "image/")
	switch sub {
	case "jpeg", "pjpeg":
		return "jpg"
	case "svg+xml":
		return "svg"
	}
	if sub == "" || strings.ContainsAny(sub, "/+.") {
		return "img"
	}
	return sub
}
