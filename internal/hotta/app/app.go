// Package app はアプリケーションのメインロジックを実装します
package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/archive"
	herrors "github.com/shiroemons/go-hotta-extractor/internal/hotta/errors"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/interfaces"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/render"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/selector"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
)

// App はアプリケーションのメインロジックを管理します
type App struct {
	req       models.ExtractionRequest
	logger    *slog.Logger
	provider  interfaces.FileProvider
	renderer  interfaces.Renderer
	predicate interfaces.Predicate
	now       func() time.Time
	summary   models.Summary
	// err は構築時に解決できなかった依存のエラーで、Run が実行全体の失敗として返します
	err       error
}

// Options はAppの設定オプション
type Options struct {
	FileSystem afero.Fs
	Provider   interfaces.FileProvider
	Renderer   interfaces.Renderer
	Logger     *slog.Logger
	Now        func() time.Time
}

// New は新しいAppを作成します
func New(req models.ExtractionRequest) *App {
	return NewWithOptions(req, Options{})
}

// NewWithOptions は新しいAppをオプション付きで作成します
func NewWithOptions(req models.ExtractionRequest, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// デフォルトのファイルシステムを設定
	fs := opts.FileSystem
	if fs == nil {
		fs = afero.NewOsFs()
	}

	// デフォルトのProviderを設定
	provider := opts.Provider
	if provider == nil {
		provider = archive.NewProvider(fs, req.GameDir, logger)
	}

	// デフォルトのRendererを設定
	renderer := opts.Renderer
	var initErr error
	if renderer == nil {
		renderer, initErr = render.New(req.Format)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &App{
		req:       req,
		logger:    logger,
		provider:  provider,
		renderer:  renderer,
		predicate: Predicate(req),
		now:       now,
		err:       initErr,
	}
}

// Predicate はリクエストの構造条件を返します
func Predicate(req models.ExtractionRequest) interfaces.Predicate {
	preds := []interfaces.Predicate{selector.MarkerPredicate(req.Marker)}
	if req.PackagesOnly {
		preds = append(preds, selector.PackagePredicate())
	}
	return selector.All(preds...)
}

// Summary は直前の実行の集計を返します
func (a *App) Summary() models.Summary {
	return a.summary
}

// Run はアプリケーションを実行します。
// 個々のアセットの失敗はログに出すだけで、実行全体の失敗のみ ErrRunFailed を包んだエラーを返します。
func (a *App) Run(ctx context.Context) error {
	start := a.now()
	a.summary = models.Summary{}

	a.logger.Info(fmt.Sprintf("Gamedir: %s\nOutputDir: %s", a.req.GameDir, a.req.OutputDir))
	if a.err != nil {
		return a.fail(a.err)
	}
	a.logger.Info("Initializing provider...")

	if err := ctx.Err(); err != nil {
		return a.fail(err)
	}
	if err := a.provider.Initialize(); err != nil {
		return a.fail(err)
	}
	defer func() {
		if err := a.provider.Close(); err != nil {
			a.logger.Debug("アーカイブを閉じられませんでした", "error", err)
		}
	}()

	if a.req.HasKey() {
		if err := a.submitKey(); err != nil {
			return a.fail(err)
		}
	}
	a.logger.Info("Skipped: " + strings.Join(a.req.Filters.Skip, ", "))

	records, err := a.provider.Files()
	if err != nil {
		return a.fail(err)
	}

	sel := selector.Select(records, a.req.Filters, a.predicate)
	a.summary.Indexed = len(records)
	a.summary.Filtered = sel.Filtered
	a.summary.Selected = len(sel.Assets)
	a.logger.Info(fmt.Sprintf("Filtered: %d", sel.Filtered))

	for _, asset := range sel.Assets {
		if err := ctx.Err(); err != nil {
			return a.fail(err)
		}
		if a.req.DryRun {
			a.logger.Info("Selected " + asset.Path)
			continue
		}

		outcome := a.process(asset)
		a.report(outcome)
		a.summary.Add(outcome)
	}

	a.summary.Elapsed = a.now().Sub(start)
	a.logSummary()
	return nil
}

// submitKey はAESキーを登録します。マウントできないアーカイブがあっても実行は続けます。
func (a *App) submitKey() error {
	key, err := crypto.ParseAESKey(a.req.Key)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	a.logger.Info("Key: " + key.Masked())

	if err := a.provider.SubmitKey(uuid.Nil, key); err != nil {
		a.logger.Warn("Fail to submit key: " + err.Error())
		a.logger.Debug("Stack Trace \n " + herrors.Detail(err))
	}
	return nil
}

// process は1アセットを解析し、エクスポートされたオブジェクトを出力用の文字列に変換します。
// 解析中のパニックはそのアセットの失敗として扱います。
func (a *App) process(asset models.AssetRecord) (outcome models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := herrors.NewPackageError("load", asset.Path, fmt.Errorf("%w: %v", herrors.ErrPanic, r))
			outcome = models.Fail(asset, err, string(debug.Stack()))
		}
	}()

	a.logger.Info(fmt.Sprintf("Parsing %s at %s", asset.Name, asset.PathWithoutExtension))

	pkg, err := a.provider.LoadPackage(asset)
	if err == nil && pkg == nil {
		err = ErrNoPackage
	}
	if err != nil {
		err = herrors.NewPackageError("load", asset.Path, fmt.Errorf("%w: %w", herrors.ErrPackageLoad, err))
		return models.Fail(asset, err, herrors.Detail(err))
	}

	exports := pkg.GetExports()
	objects := make([]string, 0, len(exports))
	for _, export := range exports {
		s, err := a.renderer.Render(export)
		if err != nil {
			err = herrors.NewPackageError("render", asset.Path, fmt.Errorf("%w: %s: %w", herrors.ErrRender, export.Name, err))
			return models.Fail(asset, err, herrors.Detail(err))
		}
		objects = append(objects, s)
	}
	return models.Succeed(asset, pkg.Name, objects)
}

// report は結果をログに出力します
func (a *App) report(o models.Outcome) {
	if !o.Succeeded() {
		a.logger.Warn(fmt.Sprintf("Error occurred when parsing %s : %s", o.Asset.Path, herrors.Message(o.Err)))
		a.logger.Debug("Stack Trace \n " + o.Detail)
		return
	}

	a.logger.Info("Cur Name: " + o.PackageName)
	for _, obj := range o.Objects {
		a.logger.Info(obj)
	}
}

// fail は実行全体の失敗を記録し、ErrRunFailed を包んだエラーを返します
func (a *App) fail(err error) error {
	a.logger.Error(fmt.Sprintf("Fail to load res: %v\n%s", err, herrors.Detail(err)))
	return fmt.Errorf("%w: %w", herrors.ErrRunFailed, err)
}

func (a *App) logSummary() {
	s := a.summary
	a.logger.Info("Summary",
		"indexed", s.Indexed,
		"filtered", s.Filtered,
		"selected", s.Selected,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"objects", s.Objects,
		"elapsed", s.Elapsed.Round(time.Millisecond),
	)
}
