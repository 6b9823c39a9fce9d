package uasset

import "errors"

var (
	// ErrInvalidTag はパッケージ先頭の識別子が一致しない場合のエラー
	ErrInvalidTag = errors.New("パッケージの識別子が一致しません")

	// ErrUnsupportedVersion はサポートされていないファイルバージョンの場合のエラー
	ErrUnsupportedVersion = errors.New("サポートされていないパッケージバージョンです")

	// ErrCorruptPackage はパッケージのテーブルが壊れている場合のエラー
	ErrCorruptPackage = errors.New("パッケージが壊れています")

	// ErrInvalidName はネームテーブル外の名前を参照した場合のエラー
	ErrInvalidName = errors.New("名前の参照が不正です")
)
