// Package crypto はUnreal Engineのpakアーカイブで使用される暗号化の解除を提供します。
//
// 主な機能:
//   - ParseAESKey: 16進数文字列からAES-256キーを生成
//   - DecryptECB: AES-256-ECBで暗号化されたブロック列の復号
//   - Align: 暗号化ブロック境界へのサイズ調整
package crypto

import (
	"crypto/aes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// KeySize はAES-256キーのバイト長です
const KeySize = 32

// BlockSize はAESのブロック長です
const BlockSize = aes.BlockSize

var (
	// ErrInvalidKeyFormat はキー文字列が16進数として解釈できない場合のエラー
	ErrInvalidKeyFormat = errors.New("AESキーの形式が不正です")

	// ErrInvalidKeyLength はキー長が32バイトでない場合のエラー
	ErrInvalidKeyLength = errors.New("AESキーの長さが不正です")

	// ErrUnalignedData は復号対象がブロック境界に揃っていない場合のエラー
	ErrUnalignedData = errors.New("暗号化データがブロック境界に揃っていません")
)

// AESKey はpakアーカイブの復号に使うAES-256キーです
type AESKey [KeySize]byte

// ParseAESKey は "0x" 付きまたはなしの64桁の16進数文字列からキーを生成します
func ParseAESKey(s string) (AESKey, error) {
	var key AESKey

	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("%w: %w", ErrInvalidKeyFormat, err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("%w: %d バイト", ErrInvalidKeyLength, len(raw))
	}

	copy(key[:], raw)
	return key, nil
}

// String はキーを "0x" 付きの大文字16進数で返します
func (k AESKey) String() string {
	return "0x" + strings.ToUpper(hex.EncodeToString(k[:]))
}

// Masked はログ出力用に先頭のみを残したキー表現を返します
func (k AESKey) Masked() string {
	s := k.String()
	return s[:8] + strings.Repeat("*", len(s)-8)
}

// IsZero はキーが未設定かどうかを返します
func (k AESKey) IsZero() bool {
	return k == AESKey{}
}

// Align はサイズをAESのブロック境界に切り上げます
func Align(n int64) int64 {
	return (n + BlockSize - 1) &^ (BlockSize - 1)
}

// DecryptECB はdataをその場でAES-256-ECB復号します
func DecryptECB(key AESKey, data []byte) error {
	if len(data)%BlockSize != 0 {
		return fmt.Errorf("%w: %d バイト", ErrUnalignedData, len(data))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}

	for off := 0; off < len(data); off += BlockSize {
		block.Decrypt(data[off:off+BlockSize], data[off:off+BlockSize])
	}
	return nil
}

// EncryptECB はdataをその場でAES-256-ECB暗号化します
func EncryptECB(key AESKey, data []byte) error {
	if len(data)%BlockSize != 0 {
		return fmt.Errorf("%w: %d バイト", ErrUnalignedData, len(data))
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return err
	}

	for off := 0; off < len(data); off += BlockSize {
		block.Encrypt(data[off:off+BlockSize], data[off:off+BlockSize])
	}
	return nil
}
