// Package util - Directory helpers.
package util

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/nvr-ai/go-humansort/images"
	"github.com/pkg/errors"
)

// ImageFile represents an image file waiting to be sorted.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Format is the format implied by the extension.
	Format images.ImageFormat
	// Size is the file size in bytes.
	Size int64
}

// ListImageFiles lists the image files directly inside dir.
//
// Subdirectories are not descended into, so sorting into folders below the
// input directory never picks its own output up again. Files whose extension
// is not a supported image format are skipped.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files, ordered by name.
//   - error: Error if the directory cannot be read.
func ListImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	files := make([]ImageFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", entry.Name())
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
			Size:   info.Size(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}
