// Package imagestore persists uploaded avatar images and returns the public
// URL they are served from.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/google/uuid"
)

// Store saves an object under key and returns its public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// AvatarKey builds a fresh object key under the avatars/ folder, keeping the
// extension implied by contentType or the original filename.
func AvatarKey(userID, filename, contentType string) string {
	ext := path.Ext(filename)
	if exts, _ := mime.ExtensionsByType(contentType); ext == "" && len(exts) > 0 {
		ext = exts[0]
	}
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.NewString(), ext)
}
