package upload

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// File is a local document selected for upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Path        string

	// open overrides reading from Path; used for in-memory selections.
	open func() (io.ReadCloser, error)
}

// FileFromPath stats path and sniffs its content type from the leading bytes,
// falling back to the extension when the bytes are inconclusive.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return File{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return File{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: detectContentType(filepath.Base(path), head[:n]),
		Path:        path,
	}, nil
}

// FileFromBytes builds a selection backed by memory.
func FileFromBytes(name string, data []byte) File {
	return File{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: detectContentType(name, data),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func (f File) Open() (io.ReadCloser, error) {
	if f.open != nil {
		return f.open()
	}
	if f.Path == "" {
		return nil, fmt.Errorf("%s has no content", f.Name)
	}
	return os.Open(f.Path)
}

// detectContentType trusts the leading bytes. The extension is consulted only when
// the bytes say nothing beyond application/octet-stream.
func detectContentType(name string, head []byte) string {
	detected := mimetype.Detect(head)
	if !detected.Is("application/octet-stream") {
		if base, _, err := mime.ParseMediaType(detected.String()); err == nil {
			return base
		}
		return detected.String()
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		if base, _, err := mime.ParseMediaType(byExt); err == nil {
			return base
		}
		return byExt
	}
	return "application/octet-stream"
}

// FormatSize renders a byte count in MB with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
}
