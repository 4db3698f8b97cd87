// Package artifact stores the file trees of generated projects so they can
// be downloaded after the fact.
package artifact

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"devforge/internal/types"
)

// ErrNotFound is returned when a looked-up artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store persists generated project trees, one entry per file keyed by
// project id and relative path. Files with empty paths are skipped.
type Store interface {
	SaveProject(ctx context.Context, projectID string, files []types.ProjectFile) error
	File(ctx context.Context, projectID, filePath string) (types.ProjectFile, error)
	ListFiles(ctx context.Context, projectID string) ([]string, error)
	FileURL(ctx context.Context, projectID, filePath string) (string, error)
}

// objectKey flattens a project file address into one storage key.
func objectKey(projectID, filePath string) string {
	return strings.TrimSpace(projectID) + "/" + cleanPath(filePath)
}

func cleanPath(p string) string {
	return strings.TrimLeft(strings.TrimSpace(p), "/")
}

// contentTypeFor guesses a MIME type from the file extension so stored
// artifacts stay viewable in a browser.
func contentTypeFor(filePath string) string {
	if ct := mime.TypeByExtension(path.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
