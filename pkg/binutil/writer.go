package binutil

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/charmap"
)

// Writer はリトルエンディアンで値を書き込みます。
// テスト用のアーカイブやパッケージの組み立てに使用します。
type Writer struct {
	buf bytes.Buffer
}

// NewWriter は新しいWriterを作成します
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes は書き込んだデータを返します
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len は書き込んだバイト数を返します
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Raw はバイト列をそのまま書き込みます
func (w *Writer) Raw(b []byte) *Writer {
	w.buf.Write(b)
	return w
}

// Uint8 は1バイトを書き込みます
func (w *Writer) Uint8(v uint8) *Writer {
	w.buf.WriteByte(v)
	return w
}

// Bool は1バイトの真偽値を書き込みます
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Uint8(1)
	}
	return w.Uint8(0)
}

// Uint16 は2バイトの符号なし整数を書き込みます
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
	return w
}

// Uint32 は4バイトの符号なし整数を書き込みます
func (w *Writer) Uint32(v uint32) *Writer {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
	return w
}

// Uint64 は8バイトの符号なし整数を書き込みます
func (w *Writer) Uint64(v uint64) *Writer {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
	return w
}

// Int32 は4バイトの符号付き整数を書き込みます
func (w *Writer) Int32(v int32) *Writer {
	return w.Uint32(uint32(v))
}

// Int64 は8バイトの符号付き整数を書き込みます
func (w *Writer) Int64(v int64) *Writer {
	return w.Uint64(uint64(v))
}

// Float32 は単精度浮動小数点数を書き込みます
func (w *Writer) Float32(v float32) *Writer {
	return w.Uint32(math.Float32bits(v))
}

// FString はFStringを書き込みます。Latin-1で表せない文字を含む場合はUTF-16LEで書き込みます
func (w *Writer) FString(s string) *Writer {
	if s == "" {
		return w.Int32(0)
	}

	if b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s)); err == nil {
		w.Int32(int32(len(b) + 1))
		w.buf.Write(b)
		return w.Uint8(0)
	}

	b, _ := utf16le.NewEncoder().Bytes([]byte(s))
	w.Int32(-int32(len(b)/2 + 1))
	w.buf.Write(b)
	return w.Uint16(0)
}
