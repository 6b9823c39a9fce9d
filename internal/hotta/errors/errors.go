// Package errors はカスタムエラータイプを提供します
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors
var (
	// ErrRunFailed は実行全体が失敗した場合のエラー
	ErrRunFailed = errors.New("リソースの読み込みに失敗しました")

	// ErrPackageLoad はパッケージの読み込みに失敗した場合のエラー
	ErrPackageLoad = errors.New("パッケージの読み込みに失敗しました")

	// ErrPanic は解析中にパニックが発生した場合のエラー
	ErrPanic = errors.New("解析中にパニックが発生しました")

	// ErrRender はオブジェクトの出力に失敗した場合のエラー
	ErrRender = errors.New("オブジェクトの出力に失敗しました")
)

// PackageError はパッケージ関連のエラー
type PackageError struct {
	Op   string // 実行していた操作
	Path string // アセットのパス
	Err  error  // 元のエラー
}

// Error はエラーメッセージを返します
func (e *PackageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap は元のエラーを返します
func (e *PackageError) Unwrap() error {
	return e.Err
}

// NewPackageError は新しいPackageErrorを作成します
func NewPackageError(op, path string, err error) *PackageError {
	return &PackageError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// Message はログに出す1行のメッセージを返します。
// PackageError で包まれている場合は元のエラーのメッセージを返します。
func Message(err error) string {
	var pe *PackageError
	if errors.As(err, &pe) && pe.Err != nil {
		return pe.Err.Error()
	}
	return err.Error()
}

// Detail はエラーの連鎖を1層1行で返します
func Detail(err error) string {
	var b strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)

		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				b.WriteString(indent(Detail(inner), depth+1))
			}
			err = nil
		default:
			err = nil
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func indent(s string, depth int) string {
	prefix := strings.Repeat("  ", depth)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}
