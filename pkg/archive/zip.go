// Package archive packages a directory of encoded audio files into a single
// downloadable archive.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"
)

// Packer produces one archive from a directory of encoded files.
type Packer interface {
	Pack(ctx context.Context, sourceDir, destPath string) error
}

// ZipPacker writes standard zip archives. Deflate is provided by the
// klauspost compressor, which is substantially faster than the stdlib one at
// the same ratio.
type ZipPacker struct {
	level int
}

// ZipOption configures a ZipPacker.
type ZipOption func(*ZipPacker)

// WithCompressionLevel sets the deflate level (flate.BestSpeed to
// flate.BestCompression).
func WithCompressionLevel(level int) ZipOption {
	return func(p *ZipPacker) {
		p.level = level
	}
}

// NewZipPacker constructs a ZipPacker with best-compression deflate.
func NewZipPacker(opts ...ZipOption) *ZipPacker {
	p := &ZipPacker{level: flate.BestCompression}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pack writes every .mp3 file in sourceDir (non-recursively, sorted by name)
// into a zip archive at destPath. An empty source directory produces a
// valid, empty archive.
func (p *ZipPacker) Pack(ctx context.Context, sourceDir, destPath string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("read source dir: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, p.level)
	})

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".mp3") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
		if err := addFile(zw, filepath.Join(sourceDir, name), name); err != nil {
			_ = zw.Close()
			_ = out.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize archive: %w", err)
	}
	return out.Close()
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

var _ Packer = (*ZipPacker)(nil)
