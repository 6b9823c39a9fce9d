// Package interfaces はhotta_extractorコマンドで使用するインターフェースを定義します
package interfaces

import (
	"github.com/google/uuid"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset"
)

// FileProvider はアーカイブをまとめて扱う仮想ファイルシステムのインターフェースです
type FileProvider interface {
	// Initialize はアーカイブを検出し、インデックスを読み込みます
	Initialize() error
	// SubmitKey は暗号化コンテナの鍵を登録します
	SubmitKey(containerID uuid.UUID, key crypto.AESKey) error
	// Files はインデックス順のアセット一覧を返します
	Files() ([]models.AssetRecord, error)
	// LoadPackage はアセットをパッケージとして解析します
	LoadPackage(record models.AssetRecord) (*uasset.Package, error)
	Close() error
}

// Renderer はオブジェクトをテキストに変換するインターフェースです
type Renderer interface {
	Render(v any) (string, error)
}

// Predicate はアセットを選択する条件です
type Predicate func(models.AssetRecord) bool
