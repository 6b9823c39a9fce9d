package archive

import "errors"

var (
	// ErrAssetNotFound はインデックスにないアセットを要求した場合のエラー
	ErrAssetNotFound = errors.New("アセットがインデックスにありません")

	// ErrInitialize はアーカイブの初期化に失敗した場合のエラー
	ErrInitialize = errors.New("アーカイブの初期化に失敗しました")
)
