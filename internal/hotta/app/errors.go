package app

import "errors"

var (
	// ErrInvalidKey はAESキーを解析できない場合のエラー
	ErrInvalidKey = errors.New("AESキーを解析できませんでした")

	// ErrNoPackage はエラーなしで空のパッケージが返された場合のエラー
	ErrNoPackage = errors.New("パッケージが返されませんでした")
)
