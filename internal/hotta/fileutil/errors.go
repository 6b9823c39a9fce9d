package fileutil

import "errors"

var (
	// ErrReadDirectory はディレクトリ内のファイル一覧を取得できない場合のエラー
	ErrReadDirectory = errors.New("ディレクトリ内のファイル一覧を取得できませんでした")

	// ErrNoPakFiles はpakファイルが1つも見つからない場合のエラー
	ErrNoPakFiles = errors.New("pakファイルが見つかりません")
)
