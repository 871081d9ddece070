package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Entry is one file placed at the archive root.
type Entry struct {
	Name string
	Data []byte
}

// ZipPackager bundles named entries into a flat zip archive.
type ZipPackager struct {
	modified time.Time
}

// NewZipPackager builds a packager. Entries are stamped with modified so identical input
// produces identical archives; the zero time falls back to the zip epoch.
func NewZipPackager(modified time.Time) *ZipPackager {
	if modified.IsZero() {
		modified = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ZipPackager{modified: modified}
}

// Bundle writes exactly the given entries in order.
func (p *ZipPackager) Bundle(entries ...Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("zip requires at least one entry")
	}
	seen := make(map[string]struct{}, len(entries))
	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	for _, entry := range entries {
		if entry.Name == "" || strings.ContainsAny(entry.Name, `/\`) {
			return nil, fmt.Errorf("invalid zip entry name %q", entry.Name)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate zip entry %q", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: p.modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Data); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", entry.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
