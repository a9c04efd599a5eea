// internal/testutil/storage.go
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"github.com/dalemusser/flyspot/internal/app/system/objstore"
	"go.uber.org/zap"
)

// NewUploader returns an uploader writing to a temporary local store and
// the root directory it writes under.
func NewUploader(t *testing.T, maxBytes int64, maxFiles int) (*imageupload.Uploader, string) {
	t.Helper()
	root := t.TempDir()
	store, err := objstore.Open(context.Background(), objstore.Config{LocalPath: root, LocalURL: "/uploads"})
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	return imageupload.New(store, maxBytes, maxFiles, zap.NewNop()), root
}

// FileExists reports whether key is present under a local store root.
func FileExists(root, key string) bool {
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	return err == nil
}
