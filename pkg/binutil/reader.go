// Package binutil はUnreal Engineのシリアライズ形式（リトルエンディアン）を読み書きします
package binutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// MaxStringLength はFStringとして受け付ける最大文字数です
const MaxStringLength = 1 << 16

var (
	// ErrShortBuffer はデータ末尾を越えて読み込もうとした場合のエラー
	ErrShortBuffer = errors.New("データが不足しています")

	// ErrInvalidString はFStringの長さが不正な場合のエラー
	ErrInvalidString = errors.New("文字列の長さが不正です")

	// ErrInvalidSeek は範囲外へのシークのエラー
	ErrInvalidSeek = errors.New("範囲外の位置です")
)

// Reader はバイト列からリトルエンディアンで値を読み込みます
type Reader struct {
	data []byte
	pos  int
}

// NewReader は新しいReaderを作成します
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Pos は現在の読み込み位置を返します
func (r *Reader) Pos() int {
	return r.pos
}

// Len はデータ全体の長さを返します
func (r *Reader) Len() int {
	return len(r.data)
}

// Remaining は未読のバイト数を返します
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Seek は読み込み位置を移動します
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return fmt.Errorf("%w: %d (長さ %d)", ErrInvalidSeek, pos, len(r.data))
	}
	r.pos = pos
	return nil
}

// Bytes はnバイトを読み込みます。返すスライスは元データを共有します
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, fmt.Errorf("%w: 位置 %d で %d バイト要求 (残り %d)", ErrShortBuffer, r.pos, n, r.Remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip はnバイト読み飛ばします
func (r *Reader) Skip(n int) error {
	_, err := r.Bytes(n)
	return err
}

// Uint8 は1バイトを読み込みます
func (r *Reader) Uint8() (uint8, error) {
	b, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool は1バイトの真偽値を読み込みます
func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	return v != 0, err
}

// Bool32 は4バイトの真偽値を読み込みます
func (r *Reader) Bool32() (bool, error) {
	v, err := r.Uint32()
	return v != 0, err
}

// Uint16 は2バイトの符号なし整数を読み込みます
func (r *Reader) Uint16() (uint16, error) {
	b, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 は4バイトの符号なし整数を読み込みます
func (r *Reader) Uint32() (uint32, error) {
	b, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 は8バイトの符号なし整数を読み込みます
func (r *Reader) Uint64() (uint64, error) {
	b, err := r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Int8 は1バイトの符号付き整数を読み込みます
func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Int16 は2バイトの符号付き整数を読み込みます
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Int32 は4バイトの符号付き整数を読み込みます
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Int64 は8バイトの符号付き整数を読み込みます
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Float32 は単精度浮動小数点数を読み込みます
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Float64 は倍精度浮動小数点数を読み込みます
func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// GUID は16バイトのGUIDを読み込みます
func (r *Reader) GUID() ([16]byte, error) {
	var g [16]byte
	b, err := r.Bytes(16)
	if err != nil {
		return g, err
	}
	copy(g[:], b)
	return g, nil
}

// FString はUnreal EngineのFStringを読み込みます。
// 長さが正ならLatin-1、負ならUTF-16LEで、いずれも終端のNULを含みます。
func (r *Reader) FString() (string, error) {
	n, err := r.Int32()
	if err != nil {
		return "", err
	}

	switch {
	case n == 0:
		return "", nil
	case n > 0:
		if n > MaxStringLength {
			return "", fmt.Errorf("%w: %d", ErrInvalidString, n)
		}
		b, err := r.Bytes(int(n))
		if err != nil {
			return "", err
		}
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(trimNUL(b, 1))
		if err != nil {
			return "", err
		}
		return string(s), nil
	default:
		if n == math.MinInt32 || -n > MaxStringLength {
			return "", fmt.Errorf("%w: %d", ErrInvalidString, n)
		}
		b, err := r.Bytes(int(-n) * 2)
		if err != nil {
			return "", err
		}
		s, err := utf16le.NewDecoder().Bytes(trimNUL(b, 2))
		if err != nil {
			return "", err
		}
		return string(s), nil
	}
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// trimNUL は末尾の終端文字（width バイト）を取り除きます
func trimNUL(b []byte, width int) []byte {
	if len(b) < width {
		return b
	}
	for _, c := range b[len(b)-width:] {
		if c != 0 {
			return b
		}
	}
	return b[:len(b)-width]
}
