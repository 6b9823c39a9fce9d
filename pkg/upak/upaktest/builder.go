// Package upaktest はテスト用のpakアーカイブをメモリ上に組み立てます
package upaktest

import (
	"bytes"
	"compress/zlib"
	"crypto/sha1"

	"github.com/google/uuid"

	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak"
)

// File はアーカイブに格納するファイルです
type File struct {
	Name     string
	Data     []byte
	Compress bool
	Encrypt  bool
}

// Builder はpakアーカイブを組み立てます
type Builder struct {
	Version       int32
	MountPoint    string
	Key           crypto.AESKey
	EncryptIndex  bool
	GUID          uuid.UUID
	BlockSize     int
	Files         []File
	CorruptIndex  bool
	OmitIndexHash bool
}

// New はv8・マウントポイント "../../../Hotta/Content/" のBuilderを作成します
func New(files ...File) *Builder {
	return &Builder{
		Version:    upak.VersionFNameBasedCompressionMethod,
		MountPoint: "../../../Hotta/Content/",
		BlockSize:  0x10000,
		Files:      files,
	}
}

type entry struct {
	offset, size, uncompressed int64
	compressed                 bool
	blocks                     []upak.Block
	encrypted                  bool
}

// Build はpakファイルのバイト列を返します
func (b *Builder) Build() []byte {
	w := binutil.NewWriter()
	entries := make([]entry, len(b.Files))

	for i, f := range b.Files {
		e := entry{
			offset:       int64(w.Len()),
			uncompressed: int64(len(f.Data)),
			compressed:   f.Compress,
			encrypted:    f.Encrypt,
		}

		var chunks [][]byte
		if f.Compress {
			for off := 0; off < len(f.Data); off += b.BlockSize {
				end := min(off+b.BlockSize, len(f.Data))
				chunks = append(chunks, deflate(f.Data[off:end]))
			}
			e.blocks = make([]upak.Block, len(chunks))
		} else {
			chunks = [][]byte{f.Data}
		}

		headerSize := int64(b.entryHeaderSize(e))
		pos := headerSize
		var payload []byte
		for j, c := range chunks {
			stored := b.seal(c, f.Encrypt)
			if f.Compress {
				start := pos
				if b.Version < upak.VersionRelativeChunkOffsets {
					start += e.offset
				}
				e.blocks[j] = upak.Block{Start: start, End: start + int64(len(c))}
			}
			payload = append(payload, stored...)
			pos += int64(len(stored))
			e.size += int64(len(c))
		}

		b.writeEntry(w, e)
		w.Raw(payload)
		entries[i] = e
	}

	indexOffset := int64(w.Len())
	index := binutil.NewWriter()
	index.FString(b.MountPoint)
	index.Int32(int32(len(b.Files)))
	for i, f := range b.Files {
		index.FString(f.Name)
		b.writeEntry(index, entries[i])
	}

	raw := index.Bytes()
	if b.EncryptIndex {
		raw = pad(raw)
	}
	hash := sha1.Sum(raw)
	if b.OmitIndexHash {
		hash = [sha1.Size]byte{}
	}
	if b.EncryptIndex {
		sealed := append([]byte(nil), raw...)
		_ = crypto.EncryptECB(b.Key, sealed)
		raw = sealed
	}
	if b.CorruptIndex {
		raw = append([]byte(nil), raw...)
		raw[0] ^= 0xFF
	}
	w.Raw(raw)

	b.writeFooter(w, indexOffset, int64(len(raw)), hash)
	return w.Bytes()
}

// seal は必要に応じてデータをブロック境界まで埋めて暗号化します
func (b *Builder) seal(data []byte, encrypt bool) []byte {
	if !encrypt {
		return data
	}
	out := pad(data)
	_ = crypto.EncryptECB(b.Key, out)
	return out
}

func (b *Builder) entryHeaderSize(e entry) int {
	n := 8*3 + 4 + sha1.Size
	if b.Version == upak.VersionInitial {
		n += 8
	}
	if b.Version >= upak.VersionCompressionEncryption {
		if e.compressed {
			n += 4 + 16*len(e.blocks)
		}
		n += 1 + 4
	}
	return n
}

func (b *Builder) writeEntry(w *binutil.Writer, e entry) {
	w.Int64(e.offset).Int64(e.size).Int64(e.uncompressed)

	method := uint32(0)
	if e.compressed {
		method = 1
	}
	w.Uint32(method)

	if b.Version == upak.VersionInitial {
		w.Int64(0)
	}
	w.Raw(make([]byte, sha1.Size))

	if b.Version >= upak.VersionCompressionEncryption {
		if e.compressed {
			w.Int32(int32(len(e.blocks)))
			for _, blk := range e.blocks {
				w.Int64(blk.Start).Int64(blk.End)
			}
		}
		w.Bool(e.encrypted)
		w.Uint32(uint32(b.BlockSize))
	}
}

func (b *Builder) writeFooter(w *binutil.Writer, indexOffset, indexSize int64, hash [sha1.Size]byte) {
	if b.Version >= upak.VersionEncryptionKeyGUID {
		w.Raw(b.GUID[:])
	}
	if b.Version >= upak.VersionIndexEncryption {
		w.Bool(b.EncryptIndex)
	}
	w.Uint32(upak.Magic)
	w.Int32(b.Version)
	w.Int64(indexOffset)
	w.Int64(indexSize)
	w.Raw(hash[:])
	if b.Version == upak.VersionFrozenIndex {
		w.Bool(false)
	}
	if b.Version >= upak.VersionFNameBasedCompressionMethod {
		for i := 0; i < 5; i++ {
			name := make([]byte, 32)
			if i == 0 {
				copy(name, upak.CompressionZlib)
			}
			w.Raw(name)
		}
	}
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

func pad(data []byte) []byte {
	out := make([]byte, crypto.Align(int64(len(data))))
	copy(out, data)
	return out
}
