package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
)

const testKeyHex = "0x6E6B325B4E3C5D1F2A8B9C0D7E6F5A4B3C2D1E0F9A8B7C6D5E4F3A2B1C0D9E8F"

// newFlags はフラグを定義して引数を解析したFlagSetを返します
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// newViper は設定ファイルをメモリ上に置いたViperを返します
func newViper(t *testing.T, files map[string]string) *viper.Viper {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(mem, name, []byte(content), 0o644))
	}
	v := viper.New()
	v.SetFs(mem)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	fs := newFlags(t)
	req, err := Load(newViper(t, nil), fs, []string{"/games/Hotta/Paks"})
	require.NoError(t, err)

	assert.Equal(t, "/games/Hotta/Paks", req.GameDir)
	assert.Equal(t, filepath.Join("/games/Hotta/Paks", "output"), req.OutputDir)
	assert.Equal(t, DefaultFilters, req.Filters.Include)
	assert.Equal(t, DefaultSkip, req.Filters.Skip)
	assert.Equal(t, DefaultMarker, req.Marker)
	assert.True(t, req.PackagesOnly)
	assert.Equal(t, models.FormatJSON, req.Format)
	assert.False(t, req.HasKey())
	assert.False(t, req.Debug)
	assert.False(t, req.DryRun)
}

func TestLoad_Flags(t *testing.T) {
	fs := newFlags(t,
		"-O", "/tmp/out",
		"-K", testKeyHex,
		"-F", "Hotta/Content/Resources/Icon",
		"-F", "Hotta/Content/Resources/UI",
		"-S", "DA_TamingMonster,WBP_Debug",
		"-D",
		"-M", "",
		"--packages-only=false",
		"-f", "YAML",
		"-n",
	)
	req, err := Load(newViper(t, nil), fs, []string{"/games/Paks"})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/out", req.OutputDir)
	assert.Equal(t, testKeyHex, req.Key)
	assert.Equal(t, []string{"Hotta/Content/Resources/Icon", "Hotta/Content/Resources/UI"}, req.Filters.Include)
	assert.Equal(t, []string{"DA_TamingMonster", "WBP_Debug"}, req.Filters.Skip)
	assert.True(t, req.Debug)
	assert.Empty(t, req.Marker)
	assert.False(t, req.PackagesOnly)
	assert.Equal(t, models.FormatYAML, req.Format)
	assert.True(t, req.DryRun)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("HOTTA_GAME_DIR", "/env/Paks")
	t.Setenv("HOTTA_KEY", testKeyHex)
	t.Setenv("HOTTA_DRY_RUN", "true")
	t.Setenv("HOTTA_MARKER", "Pet")

	req, err := Load(newViper(t, nil), newFlags(t), nil)
	require.NoError(t, err)

	assert.Equal(t, "/env/Paks", req.GameDir)
	assert.Equal(t, testKeyHex, req.Key)
	assert.True(t, req.DryRun)
	assert.Equal(t, "Pet", req.Marker)

	t.Run("引数は環境変数より優先", func(t *testing.T) {
		req, err := Load(newViper(t, nil), newFlags(t), []string{"/arg/Paks"})
		require.NoError(t, err)
		assert.Equal(t, "/arg/Paks", req.GameDir)
	})
}

func TestLoad_ConfigFile(t *testing.T) {
	content := `
game-dir: /config/Paks
filter:
  - Hotta/Content/Resources/Text
skip: []
format: yaml
`
	v := newViper(t, map[string]string{"/etc/hotta.yaml": content})
	req, err := Load(v, newFlags(t, "-c", "/etc/hotta.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, "/config/Paks", req.GameDir)
	assert.Equal(t, []string{"Hotta/Content/Resources/Text"}, req.Filters.Include)
	assert.Empty(t, req.Filters.Skip)
	assert.Equal(t, models.FormatYAML, req.Format)

	t.Run("指定した設定ファイルがない", func(t *testing.T) {
		_, err := Load(newViper(t, nil), newFlags(t, "-c", "/missing.yaml"), []string{"/games"})
		assert.ErrorIs(t, err, ErrConfigFile)
	})
}

func TestResolve_Errors(t *testing.T) {
	valid := Options{GameDir: "/games", Format: "json", Filters: DefaultFilters, Skip: DefaultSkip}

	tests := []struct {
		name    string
		modify  func(o *Options)
		wantMsg string
	}{
		{
			name:    "GAME_DIRがない",
			modify:  func(o *Options) { o.GameDir = "  " },
			wantMsg: "GameDir は必須です",
		},
		{
			name:    "AESキーの形式が不正",
			modify:  func(o *Options) { o.Key = "0x1234" },
			wantMsg: "Key は64桁の16進数のAESキーである必要があります",
		},
		{
			name:    "未対応の出力形式",
			modify:  func(o *Options) { o.Format = "xml" },
			wantMsg: "Format は json yaml yml のいずれかである必要があります",
		},
		{
			name:    "空のフィルタ",
			modify:  func(o *Options) { o.Filters = []string{""} },
			wantMsg: "Filters[0] は必須です",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.modify(&opts)
			_, err := Resolve(opts)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestResolve_DoesNotShareSlices(t *testing.T) {
	filters := []string{"Hotta/Content/Resources/Icon"}
	req, err := Resolve(Options{GameDir: "/games", Filters: filters})
	require.NoError(t, err)

	filters[0] = "changed"
	assert.Equal(t, "Hotta/Content/Resources/Icon", req.Filters.Include[0])
	assert.Equal(t, models.FormatJSON, req.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), path, []byte("HOTTA_TEST_DOTENV=loaded\n"), 0o600))
	// 後始末で元に戻すために一度設定してから消す
	t.Setenv("HOTTA_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("HOTTA_TEST_DOTENV"))

	LoadDotEnv(filepath.Join(dir, "missing.env"))
	LoadDotEnv(path)

	assert.Equal(t, "loaded", os.Getenv("HOTTA_TEST_DOTENV"))
}
