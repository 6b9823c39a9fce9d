package fileprovider

import "errors"

var (
	// ErrDirectoryNotFound はゲームディレクトリが存在しない場合のエラー
	ErrDirectoryNotFound = errors.New("ゲームディレクトリが見つかりません")

	// ErrNotInitialized は初期化前にファイル一覧へアクセスした場合のエラー
	ErrNotInitialized = errors.New("プロバイダが初期化されていません")

	// ErrNotPackage はパッケージではないファイルを読み込もうとした場合のエラー
	ErrNotPackage = errors.New("パッケージファイルではありません")

	// ErrFileNotFound はインデックスにないファイルを要求した場合のエラー
	ErrFileNotFound = errors.New("ファイルがインデックスにありません")
)
