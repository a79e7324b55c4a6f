package snapshot

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression is picked from the file extension
const (
	ExtGzip   = ".gz"
	ExtZstd   = ".zst"
	ExtBrotli = ".br"
)

func compressionExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// compress returns d compressed according to extension of path.
// Unknown extensions return d as is
func compress(path string, d []byte) ([]byte, error) {
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch compressionExt(path) {
	case ExtGzip:
		w, err = gzip.NewWriterLevel(&buf, gzip.BestCompression)
	case ExtZstd:
		w, err = zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case ExtBrotli:
		w = brotli.NewWriterLevel(&buf, brotli.BestCompression)
	default:
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(d); err != nil {
		w.Close()
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// readFileMaybeCompressed reads the file at path, decompressing it
// according to its extension
func readFileMaybeCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch compressionExt(path) {
	case ExtGzip:
		r, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case ExtZstd:
		r, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case ExtBrotli:
		return io.ReadAll(brotli.NewReader(f))
	}
	return io.ReadAll(f)
}
