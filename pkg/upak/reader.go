package upak

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
)

// maxPreallocSize は展開前に確保するバッファの上限です
const maxPreallocSize = 64 << 20

// Read はエントリの内容を復号・展開して返します
func (a *Archive) Read(e *Entry) ([]byte, error) {
	if !a.mounted {
		return nil, fmt.Errorf("%w: %s", ErrNotMounted, a.name)
	}
	if e.Encrypted && a.key.IsZero() {
		return nil, fmt.Errorf("%w: %s", ErrKeyRequired, e.Name)
	}
	if e.Offset < 0 || e.Size < 0 || e.Offset+e.headerSize+e.Size > a.size {
		return nil, fmt.Errorf("%w: %s: 範囲 %d+%d", ErrCorruptEntry, e.Name, e.Offset, e.Size)
	}

	if !e.IsCompressed() {
		return a.readRange(e, e.Offset+e.headerSize, e.Size)
	}

	if e.UncompressedSize < 0 {
		return nil, fmt.Errorf("%w: %s: 展開後サイズ %d", ErrCorruptEntry, e.Name, e.UncompressedSize)
	}
	if e.CompressionBlockSize > 0 && e.UncompressedSize > int64(len(e.Blocks))*int64(e.CompressionBlockSize) {
		return nil, fmt.Errorf("%w: %s: 展開後サイズ %d がブロック %d 個 x %d を超えています",
			ErrCorruptEntry, e.Name, e.UncompressedSize, len(e.Blocks), e.CompressionBlockSize)
	}

	out := make([]byte, 0, min(e.UncompressedSize, maxPreallocSize))
	for i, block := range e.Blocks {
		start := block.Start
		if a.info.Version >= VersionRelativeChunkOffsets {
			start += e.Offset
		}

		raw, err := a.readRange(e, start, block.End-block.Start)
		if err != nil {
			return nil, fmt.Errorf("ブロック %d: %w", i, err)
		}

		out, err = decompress(e.CompressionMethod, raw, out)
		if err != nil {
			return nil, fmt.Errorf("%s: ブロック %d: %w", e.Name, i, err)
		}
	}

	if int64(len(out)) != e.UncompressedSize {
		return nil, fmt.Errorf("%w: %s: 展開後サイズ %d (期待値 %d)", ErrCorruptEntry, e.Name, len(out), e.UncompressedSize)
	}
	return out, nil
}

// readRange は暗号化を考慮してoffからnバイトを読み込みます
func (a *Archive) readRange(e *Entry, off, n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %s: 負のサイズ %d", ErrCorruptEntry, e.Name, n)
	}

	size := n
	if e.Encrypted {
		size = crypto.Align(n)
	}
	if off < 0 || off+size > a.size {
		return nil, fmt.Errorf("%w: %s: 範囲 %d+%d", ErrCorruptEntry, e.Name, off, size)
	}

	data, err := readAt(a.r, off, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, e.Name, err)
	}

	if e.Encrypted {
		if err := crypto.DecryptECB(a.key, data); err != nil {
			return nil, err
		}
	}
	return data[:n], nil
}

// decompress は1ブロックを展開してdstに追記します
func decompress(method string, src, dst []byte) ([]byte, error) {
	var (
		rc  io.ReadCloser
		err error
	)

	switch strings.ToLower(method) {
	case "zlib":
		rc, err = zlib.NewReader(bytes.NewReader(src))
	case "gzip":
		rc, err = gzip.NewReader(bytes.NewReader(src))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, method)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
