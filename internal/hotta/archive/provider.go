// Package archive はpakアーカイブ群を hotta_extractor のアセット一覧として扱います
package archive

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	herrors "github.com/shiroemons/go-hotta-extractor/internal/hotta/errors"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/fileutil"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/interfaces"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/fileprovider"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset"
)

// Provider は fileprovider.DefaultFileProvider を interfaces.FileProvider として公開します
type Provider struct {
	inner  *fileprovider.DefaultFileProvider
	dir    string
	logger *slog.Logger
}

var _ interfaces.FileProvider = (*Provider)(nil)

// NewProvider は新しいProviderを作成します
func NewProvider(fsys afero.Fs, gameDir string, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	opts := fileprovider.DefaultOptions()
	opts.Logger = logger
	opts.Finder = fileutil.FindPakFiles

	return &Provider{
		inner:  fileprovider.New(fsys, gameDir, opts),
		dir:    gameDir,
		logger: logger,
	}
}

// Initialize はゲームディレクトリ内のpakを読み込みます
func (p *Provider) Initialize() error {
	if err := p.inner.Initialize(); err != nil {
		return herrors.NewPackageError("initialize", p.dir, fmt.Errorf("%w: %w", ErrInitialize, err))
	}
	if n := p.inner.PendingArchives(); n > 0 {
		p.logger.Debug("鍵が必要なアーカイブがあります", "count", n)
	}
	return nil
}

// SubmitKey は鍵を登録して暗号化されたアーカイブをマウントします
func (p *Provider) SubmitKey(containerID uuid.UUID, key crypto.AESKey) error {
	n, err := p.inner.SubmitKey(containerID, key)
	p.logger.Debug("鍵でマウントしたアーカイブ", "guid", containerID, "count", n,
		"pending", p.inner.PendingArchives())
	return err
}

// Files はインデックス順のアセット一覧を返します
func (p *Provider) Files() ([]models.AssetRecord, error) {
	files, err := p.inner.Files()
	if err != nil {
		return nil, err
	}
	records := make([]models.AssetRecord, len(files))
	for i, f := range files {
		records[i] = ToRecord(f)
	}
	return records, nil
}

// LoadPackage はアセットをパッケージとして解析します
func (p *Provider) LoadPackage(record models.AssetRecord) (*uasset.Package, error) {
	f, ok := p.inner.Lookup(record.Key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, record.Path)
	}
	return p.inner.LoadPackage(f)
}

// Close は開いているアーカイブを閉じます
func (p *Provider) Close() error {
	return p.inner.Close()
}

// ToRecord はアーカイブ内のファイルをAssetRecordに変換します
func ToRecord(f *fileprovider.GameFile) models.AssetRecord {
	return models.AssetRecord{
		Key:                  f.Key(),
		Path:                 f.Path,
		Name:                 f.Name(),
		PathWithoutExtension: f.PathWithoutExtension(),
		Archive:              f.Archive,
		Size:                 f.Size,
	}
}
