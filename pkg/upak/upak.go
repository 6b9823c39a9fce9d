// Package upak はUnreal Engineのpakアーカイブ（.pakファイル）を読み込むためのパッケージです。
//
// サポートするバージョン:
//   - v1〜v9（レガシーインデックス形式）
//   - 暗号化インデックス / 暗号化データ（AES-256-ECB）
//   - Zlib / Gzip 圧縮ブロック
//
// 基本的な使い方:
//
//	f, _ := os.Open("pakchunk0-WindowsNoEditor.pak")
//	info, _ := f.Stat()
//	archive, err := upak.Open(info.Name(), f, info.Size())
//	if err == nil && archive.Mount(key) == nil {
//	    for _, e := range archive.Entries() {
//	        data, err := archive.Read(e)
//	        // エントリを処理...
//	    }
//	}
package upak

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
)

// Magic はpakフッターの識別子です
const Magic uint32 = 0x5A6F12E1

// pakのバージョン
const (
	VersionInitial                     int32 = 1
	VersionNoTimestamps                int32 = 2
	VersionCompressionEncryption       int32 = 3
	VersionIndexEncryption             int32 = 4
	VersionRelativeChunkOffsets        int32 = 5
	VersionDeleteRecords               int32 = 6
	VersionEncryptionKeyGUID           int32 = 7
	VersionFNameBasedCompressionMethod int32 = 8
	VersionFrozenIndex                 int32 = 9
	VersionPathHashIndex               int32 = 10
	VersionFnv64BugFix                 int32 = 11

	// VersionLatestLegacy は読み込み可能な最新のバージョンです
	VersionLatestLegacy = VersionFrozenIndex
)

// 圧縮方式の名前
const (
	CompressionNone = ""
	CompressionZlib = "Zlib"
	CompressionGzip = "Gzip"
)

// compressionNameSize はフッターに格納される圧縮方式名の固定長です
const compressionNameSize = 32

// Info はpakフッターの内容です
type Info struct {
	EncryptionKeyGUID  uuid.UUID
	EncryptedIndex     bool
	Version            int32
	IndexOffset        int64
	IndexSize          int64
	IndexHash          [sha1.Size]byte
	IndexFrozen        bool
	CompressionMethods []string
}

// Block は圧縮ブロックの範囲です
type Block struct {
	Start int64
	End   int64
}

// Entry はpak内の1ファイルです
type Entry struct {
	Name                 string
	Offset               int64
	Size                 int64
	UncompressedSize     int64
	CompressionMethod    string
	Blocks               []Block
	Encrypted            bool
	CompressionBlockSize uint32

	headerSize int64
}

// IsCompressed はエントリが圧縮されているかを返します
func (e *Entry) IsCompressed() bool {
	return e.CompressionMethod != CompressionNone
}

// Archive は開かれたpakアーカイブです
type Archive struct {
	name       string
	r          io.ReaderAt
	size       int64
	info       Info
	key        crypto.AESKey
	mounted    bool
	mountPoint string
	entries    []*Entry
}

// footerLayout はフッターのサイズと、そのサイズで有効なバージョンの組です
type footerLayout struct {
	size  int64
	valid func(v int32) bool
}

// 大きいレイアウトから順に試します
var footerLayouts = []footerLayout{
	{222, func(v int32) bool { return v == VersionFrozenIndex }},
	{221, func(v int32) bool { return v >= VersionFNameBasedCompressionMethod && v != VersionFrozenIndex }},
	{189, func(v int32) bool { return v == VersionFNameBasedCompressionMethod }},
	{61, func(v int32) bool { return v == VersionEncryptionKeyGUID }},
	{45, func(v int32) bool { return v >= VersionIndexEncryption && v <= VersionDeleteRecords }},
	{44, func(v int32) bool { return v >= VersionInitial && v <= VersionCompressionEncryption }},
}

// Open はpakのフッターを読み込みます。インデックスはMountで読み込みます
func Open(name string, r io.ReaderAt, size int64) (*Archive, error) {
	for _, layout := range footerLayouts {
		if size < layout.size {
			continue
		}

		buf, err := readAt(r, size-layout.size, layout.size)
		if err != nil {
			return nil, fmt.Errorf("%s: フッターの読み込みに失敗: %w", name, err)
		}

		info, ok := parseFooter(buf, layout)
		if !ok {
			continue
		}

		if info.Version > VersionLatestLegacy {
			return nil, fmt.Errorf("%w: %s: v%d", ErrUnsupportedVersion, name, info.Version)
		}
		if info.IndexOffset < 0 || info.IndexSize < 0 || info.IndexOffset+info.IndexSize > size {
			return nil, fmt.Errorf("%w: %s: インデックス範囲 %d+%d", ErrCorruptIndex, name, info.IndexOffset, info.IndexSize)
		}

		return &Archive{name: name, r: r, size: size, info: info}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidMagic, name)
}

// parseFooter はレイアウトに従ってフッターを解釈します
func parseFooter(buf []byte, layout footerLayout) (Info, bool) {
	var info Info
	r := binutil.NewReader(buf)

	if layout.size >= 61 {
		guid, _ := r.GUID()
		info.EncryptionKeyGUID = uuid.UUID(guid)
	}
	if layout.size >= 45 {
		info.EncryptedIndex, _ = r.Bool()
	}

	magic, err := r.Uint32()
	if err != nil || magic != Magic {
		return info, false
	}
	if info.Version, err = r.Int32(); err != nil || !layout.valid(info.Version) {
		return info, false
	}

	info.IndexOffset, _ = r.Int64()
	info.IndexSize, _ = r.Int64()
	hash, err := r.Bytes(sha1.Size)
	if err != nil {
		return info, false
	}
	copy(info.IndexHash[:], hash)

	if layout.size == 222 {
		info.IndexFrozen, _ = r.Bool()
	}

	for r.Remaining() >= compressionNameSize {
		raw, _ := r.Bytes(compressionNameSize)
		if name := string(bytes.TrimRight(raw, "\x00")); name != "" {
			info.CompressionMethods = append(info.CompressionMethods, name)
		}
	}
	return info, true
}

// Name はアーカイブ名を返します
func (a *Archive) Name() string {
	return a.name
}

// Info はフッター情報を返します
func (a *Archive) Info() Info {
	return a.info
}

// IsMounted はインデックスが読み込まれているかを返します
func (a *Archive) IsMounted() bool {
	return a.mounted
}

// MountPoint は正規化されたマウントポイントを返します（例: "Hotta/Content/"）
func (a *Archive) MountPoint() string {
	return a.mountPoint
}

// Entries はインデックス順のエントリを返します
func (a *Archive) Entries() []*Entry {
	return a.entries
}

// Path はエントリのアーカイブ内パスを返します
func (a *Archive) Path(e *Entry) string {
	return strings.TrimPrefix(a.mountPoint+e.Name, "/")
}

// Mount はインデックスを読み込みます。
// key はインデックスまたはデータが暗号化されている場合に使用され、ゼロ値は鍵なしを表します。
func (a *Archive) Mount(key crypto.AESKey) error {
	if a.info.EncryptedIndex && key.IsZero() {
		return fmt.Errorf("%w: %s", ErrKeyRequired, a.name)
	}

	raw, err := readAt(a.r, a.info.IndexOffset, a.info.IndexSize)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptIndex, a.name, err)
	}

	if a.info.EncryptedIndex {
		if err := crypto.DecryptECB(key, raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrCorruptIndex, a.name, err)
		}
	}

	if a.info.IndexHash != ([sha1.Size]byte{}) && sha1.Sum(raw) != a.info.IndexHash {
		if a.info.EncryptedIndex {
			return fmt.Errorf("%w: %s", ErrInvalidKey, a.name)
		}
		return fmt.Errorf("%w: %s: ハッシュ不一致", ErrCorruptIndex, a.name)
	}

	mountPoint, entries, err := a.parseIndex(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorruptIndex, a.name, err)
	}

	a.key = key
	a.mountPoint = mountPoint
	a.entries = entries
	a.mounted = true
	return nil
}

// SetKey はマウント済みのアーカイブにデータ復号用の鍵を設定します。
// インデックスは読み直しません。
func (a *Archive) SetKey(key crypto.AESKey) {
	a.key = key
}

// parseIndex はレガシー形式のインデックスを解釈します
func (a *Archive) parseIndex(raw []byte) (string, []*Entry, error) {
	r := binutil.NewReader(raw)

	mountPoint, err := r.FString()
	if err != nil {
		return "", nil, err
	}

	count, err := r.Int32()
	if err != nil {
		return "", nil, err
	}
	if count < 0 || int(count) > r.Remaining() {
		return "", nil, fmt.Errorf("エントリ数が不正です: %d", count)
	}

	entries := make([]*Entry, 0, count)
	for i := int32(0); i < count; i++ {
		name, err := r.FString()
		if err != nil {
			return "", nil, fmt.Errorf("エントリ %d: %w", i, err)
		}

		e, err := a.readEntry(r)
		if err != nil {
			return "", nil, fmt.Errorf("エントリ %s: %w", name, err)
		}
		e.Name = name
		entries = append(entries, e)
	}

	return normalizeMountPoint(mountPoint), entries, nil
}

// readEntry はFPakEntryを読み込みます。データの直前にも同じ形式で書かれています
func (a *Archive) readEntry(r *binutil.Reader) (*Entry, error) {
	start := r.Pos()
	version := a.info.Version
	e := &Entry{}

	var err error
	if e.Offset, err = r.Int64(); err != nil {
		return nil, err
	}
	if e.Size, err = r.Int64(); err != nil {
		return nil, err
	}
	if e.UncompressedSize, err = r.Int64(); err != nil {
		return nil, err
	}

	if version < VersionFNameBasedCompressionMethod {
		flags, err := r.Int32()
		if err != nil {
			return nil, err
		}
		e.CompressionMethod = legacyCompressionMethod(flags)
	} else {
		index, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		if index > 0 {
			if int(index) > len(a.info.CompressionMethods) {
				e.CompressionMethod = fmt.Sprintf("Unknown#%d", index)
			} else {
				e.CompressionMethod = a.info.CompressionMethods[index-1]
			}
		}
	}

	if version == VersionInitial {
		if err := r.Skip(8); err != nil {
			return nil, err
		}
	}
	if err := r.Skip(sha1.Size); err != nil {
		return nil, err
	}

	if version >= VersionCompressionEncryption {
		if e.IsCompressed() {
			n, err := r.Int32()
			if err != nil {
				return nil, err
			}
			if n < 0 || int(n)*16 > r.Remaining() {
				return nil, fmt.Errorf("ブロック数が不正です: %d", n)
			}
			e.Blocks = make([]Block, n)
			for i := range e.Blocks {
				e.Blocks[i].Start, _ = r.Int64()
				e.Blocks[i].End, _ = r.Int64()
			}
		}

		flags, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		e.Encrypted = flags&0x01 != 0
		if e.CompressionBlockSize, err = r.Uint32(); err != nil {
			return nil, err
		}
	}

	e.headerSize = int64(r.Pos() - start)
	return e, nil
}

// legacyCompressionMethod はv8未満の圧縮フラグを名前に変換します
func legacyCompressionMethod(flags int32) string {
	switch {
	case flags == 0:
		return CompressionNone
	case flags&0x01 != 0:
		return CompressionZlib
	case flags&0x02 != 0:
		return CompressionGzip
	default:
		return fmt.Sprintf("Custom#%d", flags)
	}
}

// readAt はoffからnバイトを読み込みます。末尾まで読み切った場合のio.EOFは無視します
func readAt(r io.ReaderAt, off, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, off)
	if int64(read) == n {
		return buf, nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// normalizeMountPoint は "../../../" を取り除き、末尾を "/" で終わらせます
func normalizeMountPoint(mp string) string {
	for strings.HasPrefix(mp, "../") {
		mp = strings.TrimPrefix(mp, "../")
	}
	mp = strings.TrimPrefix(mp, "/")
	if mp != "" && !strings.HasSuffix(mp, "/") {
		mp += "/"
	}
	return mp
}
