package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/config"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset/uassettest"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak/upaktest"
)

var testKey = crypto.AESKey{
	0x2B, 0x7E, 0x15, 0x16, 0x28, 0xAE, 0xD2, 0xA6,
	0xAB, 0xF7, 0x15, 0x88, 0x09, 0xCF, 0x4F, 0x3C,
	0x2B, 0x7E, 0x15, 0x16, 0x28, 0xAE, 0xD2, 0xA6,
	0xAB, 0xF7, 0x15, 0x88, 0x09, 0xCF, 0x4F, 0x3C,
}

// newGameDir はテスト用のpakを置いたディレクトリを作成します
func newGameDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	header, body := uassettest.New(uassettest.Export{
		Class:      "DataTable",
		Name:       "DT_TamingFood",
		Properties: []uassettest.Property{{Name: "Level", Value: int32(7)}},
	}).Build()

	plain := upaktest.New(
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uasset", Data: header, Compress: true},
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uexp", Data: body, Compress: true},
		upaktest.File{Name: "SevenForest/Data/DA_TamingMonster_Fox.uasset", Data: header},
	)
	secret := upaktest.New(
		upaktest.File{Name: "Resources/UI/Taming/WBP_Taming.uasset", Data: header, Encrypt: true},
		upaktest.File{Name: "Resources/UI/Taming/WBP_Taming.uexp", Data: body, Encrypt: true},
	)
	secret.Key = testKey

	fsys := afero.NewOsFs()
	require.NoError(t, fsys.MkdirAll(filepath.Join(dir, "Paks"), 0o755))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "Paks", "pakchunk0-WindowsNoEditor.pak"), plain.Build(), 0o644))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(dir, "Paks", "pakchunk1-WindowsNoEditor.pak"), secret.Build(), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := execute(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, config.Version)
}

func TestRun_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "GAME_DIRがない", args: nil, wantErr: "GameDir は必須です"},
		{name: "引数が多すぎる", args: []string{"a", "b"}, wantErr: "accepts at most 1 arg"},
		{name: "不正なAESキー", args: []string{"/games", "-K", "xyz"}, wantErr: "AESキー"},
		{name: "未知のフラグ", args: []string{"/games", "--unknown"}, wantErr: "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantErr)
			assert.NotContains(t, stdout, "Initializing provider...")
		})
	}
}

func TestRun_RunLevelFailure(t *testing.T) {
	code, stdout, stderr := execute(t, filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "Fail to load res: ")
	assert.NotContains(t, stdout, "Parsing ")
	assert.Empty(t, stderr)
}

func TestRun_Extract(t *testing.T) {
	dir := newGameDir(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name: "既定のコマンド",
			args: []string{dir},
			contains: []string{
				"Gamedir: " + dir,
				"Skipped: DA_TamingMonster",
				"Filtered: 4",
				"Parsing DT_TamingFood.uasset at Hotta/Content/SevenForest/Data/DT_TamingFood",
				"Cur Name: Hotta/Content/SevenForest/Data/DT_TamingFood",
				`"Name": "DT_TamingFood"`,
				`"Value": 7`,
				"Error occurred when parsing Hotta/Content/Resources/UI/Taming/WBP_Taming.uasset : ",
			},
			excludes: []string{"DA_TamingMonster_Fox.uasset at", "Stack Trace"},
		},
		{
			name:     "exエイリアスとYAML",
			args:     []string{"ex", dir, "-f", "yaml", "-F", "Hotta/Content/SevenForest"},
			contains: []string{"Filtered: 2", "name: DT_TamingFood", "type: DataTable"},
			excludes: []string{"WBP_Taming"},
		},
		{
			name:     "unpackエイリアスと鍵",
			args:     []string{"unpack", dir, "-K", testKey.String(), "-D"},
			contains: []string{"Key: 0x2B7E15*", "Cur Name: Hotta/Content/Resources/UI/Taming/WBP_Taming"},
			excludes: []string{"Error occurred when parsing", testKey.String()},
		},
		{
			name:     "ドライラン",
			args:     []string{"extract", dir, "-n"},
			contains: []string{"Selected Hotta/Content/SevenForest/Data/DT_TamingFood.uasset"},
			excludes: []string{"Parsing "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.args...)
			require.Equal(t, 0, code, stderr)
			for _, s := range tt.contains {
				assert.Contains(t, stdout, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, stdout, s)
			}
		})
	}
}
