// Package archive opens uploaded photo archives and yields image
// entries with sanitized, collision-free names.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/kailas-cloud/facedex/internal/domain"
)

// imageExtensions is the allow-list of archive member extensions.
var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".bmp":  {},
}

// Entry is one image member of an archive.
type Entry struct {
	// Path is the original member path inside the archive.
	Path string

	file *zip.File
}

// Read returns the member's bytes.
func (e Entry) Read() ([]byte, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open member %s: %w", e.Path, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read member %s: %w", e.Path, err)
	}
	return data, nil
}

// Open parses a zip archive from memory and returns its image entries,
// sorted by path so that downstream name normalization is deterministic.
// Platform junk (__MACOSX) and dot-prefixed members are excluded.
// Returns domain.ErrArchiveCorrupt when data is not a valid zip; an
// archive with zero qualifying members is not an error here.
func Open(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !isImageMember(f.Name) {
			continue
		}
		entries = append(entries, Entry{Path: f.Name, file: f})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// isImageMember reports whether a member path names an allow-listed
// image and is not platform junk or hidden.
func isImageMember(name string) bool {
	if strings.HasPrefix(name, "__MACOSX") {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if strings.HasPrefix(seg, ".") {
			return false
		}
	}
	ext := strings.ToLower(path.Ext(name))
	_, ok := imageExtensions[ext]
	return ok
}

// ContentType maps an image filename to its MIME type for storage.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
