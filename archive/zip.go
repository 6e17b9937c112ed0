// Package archive implements marionette.ArchiveCodec as a zip file holding
// the manifest plus one PNG per raster layer.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/phanxgames/marionette"
)

// MaxEntrySize bounds the uncompressed size of a single archive entry.
const MaxEntrySize = 256 << 20

// ErrMissingManifest is returned by Decode when the archive has no
// project.json.
var ErrMissingManifest = errors.New("archive: missing " + marionette.ManifestName)

// Zip is the zip container codec. The zero value stores entries with
// Deflate compression.
type Zip struct {
	// Store writes entries uncompressed.
	Store bool
}

var _ marionette.ArchiveCodec = Zip{}

// Encode writes the manifest first, then the blobs in name order.
func (z Zip) Encode(manifest []byte, blobs map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	method := zip.Deflate
	if z.Store {
		method = zip.Store
	}

	write := func(name string, data []byte) error {
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: method})
		if err != nil {
			return fmt.Errorf("archive: create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("archive: write %s: %w", name, err)
		}
		return nil
	}

	if err := write(marionette.ManifestName, manifest); err != nil {
		return nil, err
	}
	for _, name := range slices.Sorted(maps.Keys(blobs)) {
		if name == marionette.ManifestName {
			return nil, fmt.Errorf("archive: blob name %q is reserved", name)
		}
		if err := write(name, blobs[name]); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode returns the manifest and every regular file other than the
// manifest. Directory entries are skipped.
func (z Zip) Decode(data []byte) ([]byte, map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open: %w", err)
	}
	var manifest []byte
	blobs := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		b, err := readEntry(f)
		if err != nil {
			return nil, nil, err
		}
		if f.Name == marionette.ManifestName {
			manifest = b
			continue
		}
		blobs[f.Name] = b
	}
	if manifest == nil {
		return nil, nil, ErrMissingManifest
	}
	return manifest, blobs, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > MaxEntrySize {
		return nil, fmt.Errorf("archive: %s: %d bytes exceeds limit", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", f.Name, err)
	}
	if len(b) > MaxEntrySize {
		return nil, fmt.Errorf("archive: %s exceeds limit", f.Name)
	}
	return b, nil
}
