// Package util - Filesystem helpers for batch processing.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RedactedSuffix marks files written by the batch renderer; the loader skips them.
const RedactedSuffix = ".redacted"

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Name is the file name without its extension.
	Name string
	// Data is the raw bytes of the image file.
	Data []byte
	// Index is the trailing number of the name, or -1 when it has none.
	Index int
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// LoadDirectoryImageFiles reads all web image files from a directory.
// Numbered files such as frame-12.jpg sort by number ahead of the rest, which
// sort by name.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		ext := filepath.Ext(file.Name())
		if !imageExtensions[strings.ToLower(ext)] {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ext)
		if strings.HasSuffix(name, RedactedSuffix) {
			continue
		}

		imgPath := filepath.Join(dir, file.Name())
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "read %s", imgPath)
		}
		images = append(images, ImageFile{
			Path:  imgPath,
			Name:  name,
			Data:  data,
			Index: trailingNumber(name),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		a, b := images[i], images[j]
		switch {
		case a.Index >= 0 && b.Index >= 0 && a.Index != b.Index:
			return a.Index < b.Index
		case a.Index >= 0 && b.Index < 0:
			return true
		case a.Index < 0 && b.Index >= 0:
			return false
		}
		return a.Name < b.Name
	})

	return images, nil
}

func trailingNumber(name string) int {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return -1
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return -1
	}
	return n
}
