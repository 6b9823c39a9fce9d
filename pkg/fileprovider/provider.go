// Package fileprovider はゲームディレクトリ内のpakアーカイブをまとめて
// 1つの仮想ファイルシステムとして扱います。
//
// 暗号化されていないアーカイブは Initialize でマウントされ、インデックスが
// 暗号化されたアーカイブは SubmitKey で鍵が渡されるまで保留されます。
package fileprovider

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak"
)

// PakExtension はアーカイブファイルの拡張子です
const PakExtension = ".pak"

// パッケージとして読み込む拡張子
var packageExtensions = map[string]string{
	".uasset": ".uexp",
	".umap":   ".uexp",
}

// GameFile はマウントされたアーカイブ内の1ファイルです
type GameFile struct {
	Path    string
	Archive string
	Size    int64

	archive *upak.Archive
	entry   *upak.Entry
}

// Key はインデックスのキー（小文字化したパス）を返します
func (f *GameFile) Key() string {
	return strings.ToLower(f.Path)
}

// Name はディレクトリを除いたファイル名を返します
func (f *GameFile) Name() string {
	return path.Base(f.Path)
}

// Extension は拡張子を小文字で返します
func (f *GameFile) Extension() string {
	return strings.ToLower(path.Ext(f.Path))
}

// PathWithoutExtension は拡張子を除いたパスを返します
func (f *GameFile) PathWithoutExtension() string {
	return strings.TrimSuffix(f.Path, path.Ext(f.Path))
}

// IsPackage はパッケージ（.uasset / .umap）かを返します
func (f *GameFile) IsPackage() bool {
	_, ok := packageExtensions[f.Extension()]
	return ok
}

// Finder はディレクトリ以下のpakファイルをマウント順に返す関数です
type Finder func(fsys afero.Fs, dir string) ([]string, error)

// Options はプロバイダの設定です
type Options struct {
	Package uasset.Options
	Logger  *slog.Logger
	// Finder が nil の場合はディレクトリを名前順に走査します
	Finder Finder
}

// DefaultOptions は既定の設定を返します
func DefaultOptions() Options {
	return Options{Package: uasset.DefaultOptions()}
}

// archiveHandle は開いたアーカイブとそのファイルです
type archiveHandle struct {
	archive *upak.Archive
	file    afero.File
}

// DefaultFileProvider はディレクトリ内の全アーカイブを束ねるプロバイダです
type DefaultFileProvider struct {
	fs     afero.Fs
	dir    string
	opts   Options
	logger *slog.Logger

	handles     []*archiveHandle
	pending     map[uuid.UUID][]*archiveHandle
	files       map[string]*GameFile
	order       []string
	initialized bool
}

// New は新しいプロバイダを作成します
func New(fsys afero.Fs, dir string, opts Options) *DefaultFileProvider {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFileProvider{
		fs:      fsys,
		dir:     dir,
		opts:    opts,
		logger:  logger,
		pending: make(map[uuid.UUID][]*archiveHandle),
		files:   make(map[string]*GameFile),
	}
}

// Initialize はディレクトリ以下のpakを開き、鍵の不要なアーカイブをマウントします。
// 開けないアーカイブは警告を出して読み飛ばします。
func (p *DefaultFileProvider) Initialize() error {
	ok, err := afero.DirExists(p.fs, p.dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDirectoryNotFound, p.dir, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, p.dir)
	}

	find := p.opts.Finder
	if find == nil {
		find = FindPaks
	}
	paks, err := find(p.fs, p.dir)
	if err != nil {
		return fmt.Errorf("%s の走査に失敗しました: %w", p.dir, err)
	}

	for _, name := range paks {
		h, err := p.open(name)
		if err != nil {
			p.logger.Warn("アーカイブを開けませんでした", "path", name, "error", err)
			continue
		}
		p.handles = append(p.handles, h)

		info := h.archive.Info()
		if info.EncryptedIndex {
			p.pending[info.EncryptionKeyGUID] = append(p.pending[info.EncryptionKeyGUID], h)
			p.logger.Debug("鍵待ちのアーカイブ", "archive", h.archive.Name(), "guid", info.EncryptionKeyGUID)
			continue
		}
		if err := p.mount(h, crypto.AESKey{}); err != nil {
			p.logger.Warn("アーカイブをマウントできませんでした", "archive", h.archive.Name(), "error", err)
		}
	}

	p.reindex()
	p.initialized = true
	return nil
}

// FindPaks はディレクトリ以下のpakファイルを名前順に返します
func FindPaks(fsys afero.Fs, dir string) ([]string, error) {
	var paks []string
	err := afero.Walk(fsys, dir, func(name string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(name), PakExtension) {
			paks = append(paks, name)
		}
		return nil
	})
	return paks, err
}

func (p *DefaultFileProvider) open(name string) (*archiveHandle, error) {
	f, err := p.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	archive, err := upak.Open(filepath.Base(name), f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &archiveHandle{archive: archive, file: f}, nil
}

// mount はアーカイブのインデックスを読み込みます。
// ファイル一覧への登録は reindex で行います。
func (p *DefaultFileProvider) mount(h *archiveHandle, key crypto.AESKey) error {
	if err := h.archive.Mount(key); err != nil {
		return err
	}
	p.logger.Debug("アーカイブをマウントしました", "archive", h.archive.Name(),
		"mount_point", h.archive.MountPoint(), "entries", len(h.archive.Entries()))
	return nil
}

// reindex はマウント済みのアーカイブからファイル一覧を作り直します。
// アーカイブは検出順に登録するため、同じパスは検出順で後のアーカイブが優先され、
// 位置は最初に現れた位置のままです。鍵を登録した時点の順序には依存しません。
func (p *DefaultFileProvider) reindex() {
	p.files = make(map[string]*GameFile)
	p.order = p.order[:0]
	for _, h := range p.handles {
		if !h.archive.IsMounted() {
			continue
		}
		for _, e := range h.archive.Entries() {
			f := &GameFile{
				Path:    h.archive.Path(e),
				Archive: h.archive.Name(),
				Size:    e.UncompressedSize,
				archive: h.archive,
				entry:   e,
			}
			k := f.Key()
			if _, exists := p.files[k]; !exists {
				p.order = append(p.order, k)
			}
			p.files[k] = f
		}
	}
}

// SubmitKey は鍵を登録し、そのGUIDで保留中のアーカイブをマウントします。
// マウント済みでデータのみ暗号化されたアーカイブには、再マウントせずに同じ鍵を設定します。
// 戻り値はマウントできたアーカイブの数で、失敗したアーカイブのエラーはまとめて返します。
func (p *DefaultFileProvider) SubmitKey(guid uuid.UUID, key crypto.AESKey) (int, error) {
	var errs []error
	mounted := 0

	var remaining []*archiveHandle
	for _, h := range p.pending[guid] {
		if err := p.mount(h, key); err != nil {
			errs = append(errs, err)
			remaining = append(remaining, h)
			continue
		}
		mounted++
	}
	if len(remaining) > 0 {
		p.pending[guid] = remaining
	} else {
		delete(p.pending, guid)
	}

	for _, h := range p.handles {
		info := h.archive.Info()
		if !h.archive.IsMounted() || info.EncryptedIndex || info.EncryptionKeyGUID != guid {
			continue
		}
		h.archive.SetKey(key)
	}

	if mounted > 0 {
		p.reindex()
	}
	return mounted, errors.Join(errs...)
}

// PendingArchives は鍵待ちのアーカイブ数を返します
func (p *DefaultFileProvider) PendingArchives() int {
	n := 0
	for _, hs := range p.pending {
		n += len(hs)
	}
	return n
}

// Files はマウント済みのファイルをインデックス順に返します
func (p *DefaultFileProvider) Files() ([]*GameFile, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}
	files := make([]*GameFile, 0, len(p.order))
	for _, key := range p.order {
		files = append(files, p.files[key])
	}
	return files, nil
}

// Lookup はパス（大文字小文字を区別しない）からファイルを探します
func (p *DefaultFileProvider) Lookup(name string) (*GameFile, bool) {
	f, ok := p.files[strings.ToLower(name)]
	return f, ok
}

// Read はファイルの内容を返します
func (p *DefaultFileProvider) Read(f *GameFile) ([]byte, error) {
	if f == nil || f.archive == nil {
		return nil, ErrFileNotFound
	}
	return f.archive.Read(f.entry)
}

// LoadPackage はパッケージを読み込み、.uexp があれば合わせて解析します
func (p *DefaultFileProvider) LoadPackage(f *GameFile) (*uasset.Package, error) {
	if f == nil {
		return nil, ErrFileNotFound
	}
	companion, ok := packageExtensions[f.Extension()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotPackage, f.Path)
	}

	header, err := p.Read(f)
	if err != nil {
		return nil, err
	}

	var body []byte
	if uexp, ok := p.Lookup(f.PathWithoutExtension() + companion); ok {
		if body, err = p.Read(uexp); err != nil {
			return nil, fmt.Errorf("%s: %w", uexp.Path, err)
		}
	}

	return uasset.Parse(f.PathWithoutExtension(), header, body, p.opts.Package)
}

// Close は開いているアーカイブをすべて閉じます
func (p *DefaultFileProvider) Close() error {
	var errs []error
	for _, h := range p.handles {
		if err := h.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.handles = nil
	p.pending = make(map[uuid.UUID][]*archiveHandle)
	return errors.Join(errs...)
}
