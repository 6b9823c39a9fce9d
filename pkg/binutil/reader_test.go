package binutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Scalars(t *testing.T) {
	w := NewWriter().
		Uint8(0xAB).
		Uint16(0x1234).
		Int32(-5).
		Int64(1 << 40).
		Float32(1.5).
		Bool(true)

	r := NewReader(w.Bytes())

	u8, err := r.Uint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), u8)

	u16, err := r.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	i32, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-5), i32)

	i64, err := r.Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)

	f32, err := r.Float32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	b, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, b)

	assert.Zero(t, r.Remaining())
	_, err = r.Uint8()
	assert.ErrorIs(t, err, ErrShortBuffer, "読み込み超過")
}

func TestReader_FString(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "空文字列", value: ""},
		{name: "ASCII", value: "../../../Hotta/Content/"},
		{name: "Latin-1", value: "Café"},
		{name: "UTF-16", value: "幻塔"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(NewWriter().FString(tt.value).Bytes())
			got, err := r.FString()
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
			assert.Zero(t, r.Remaining())
		})
	}
}

func TestReader_FStringInvalidLength(t *testing.T) {
	r := NewReader(NewWriter().Int32(MaxStringLength + 1).Bytes())
	_, err := r.FString()
	assert.ErrorIs(t, err, ErrInvalidString)
}

func TestReader_Seek(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	require.NoError(t, r.Seek(2))

	v, _ := r.Uint8()
	assert.Equal(t, uint8(3), v, "Seek後のUint8()")
	assert.ErrorIs(t, r.Seek(5), ErrInvalidSeek)
}
