package upak

import "errors"

var (
	// ErrInvalidMagic はpakのフッターが見つからない場合のエラー
	ErrInvalidMagic = errors.New("pakファイルのフッターが見つかりません")

	// ErrUnsupportedVersion はサポートされていないpakバージョンの場合のエラー
	ErrUnsupportedVersion = errors.New("サポートされていないpakバージョンです")

	// ErrKeyRequired は暗号化されたデータを鍵なしで読もうとした場合のエラー
	ErrKeyRequired = errors.New("暗号化されています。AESキーが必要です")

	// ErrInvalidKey はAESキーが一致しない場合のエラー
	ErrInvalidKey = errors.New("AESキーが一致しません")

	// ErrCorruptIndex はインデックスが壊れている場合のエラー
	ErrCorruptIndex = errors.New("pakインデックスが壊れています")

	// ErrCorruptEntry はエントリの位置やサイズが不正な場合のエラー
	ErrCorruptEntry = errors.New("pakエントリが壊れています")

	// ErrUnsupportedCompression はサポートされていない圧縮形式の場合のエラー
	ErrUnsupportedCompression = errors.New("サポートされていない圧縮形式です")

	// ErrNotMounted はインデックスを読み込む前にエントリへアクセスした場合のエラー
	ErrNotMounted = errors.New("pakがマウントされていません")
)
