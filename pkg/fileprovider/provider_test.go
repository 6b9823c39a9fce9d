package fileprovider_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/fileprovider"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset/uassettest"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak/upaktest"
)

const gameDir = "/game/Hotta/Content/Paks"

var (
	testKey = crypto.AESKey{
		0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 0xA6, 0xA7,
		0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7,
		0xC0, 0xC1, 0xC2, 0xC3, 0xC4, 0xC5, 0xC6, 0xC7,
		0xD0, 0xD1, 0xD2, 0xD3, 0xD4, 0xD5, 0xD6, 0xD7,
	}
	testGUID = uuid.MustParse("6d0e3f7a-2b4c-4d8e-9f10-a1b2c3d4e5f6")
)

func writePak(t *testing.T, fsys afero.Fs, name string, b *upaktest.Builder) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, gameDir+"/"+name, b.Build(), 0o644), name)
}

// newGameFs はプレーンなpakと暗号化インデックスのpakを1つずつ持つファイルシステムを作成します
func newGameFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()

	header, body := uassettest.New(uassettest.Export{
		Class:      "DataTable",
		Name:       "DT_TamingFood",
		Properties: []uassettest.Property{{Name: "Level", Value: int32(3)}},
	}).Build()

	plain := upaktest.New(
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uasset", Data: header, Compress: true},
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uexp", Data: body, Compress: true},
		upaktest.File{Name: "Resources/Text/Game.locres", Data: []byte("locres")},
	)
	writePak(t, fsys, "pakchunk0-WindowsNoEditor.pak", plain)

	secret := upaktest.New(
		upaktest.File{Name: "Resources/UI/Taming/WBP_Taming.uasset", Data: header, Encrypt: true},
	)
	secret.Key = testKey
	secret.EncryptIndex = true
	secret.GUID = testGUID
	writePak(t, fsys, "pakchunk1-WindowsNoEditor.pak", secret)

	return fsys
}

func newProvider(t *testing.T, fsys afero.Fs) *fileprovider.DefaultFileProvider {
	t.Helper()
	p := fileprovider.New(fsys, gameDir, fileprovider.DefaultOptions())
	t.Cleanup(func() { _ = p.Close() })
	require.NoError(t, p.Initialize())
	return p
}

func paths(t *testing.T, p *fileprovider.DefaultFileProvider) []string {
	t.Helper()
	files, err := p.Files()
	require.NoError(t, err)
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestProvider_InitializeAndSubmitKey(t *testing.T) {
	p := fileprovider.New(newGameFs(t), gameDir, fileprovider.DefaultOptions())
	defer p.Close()

	_, err := p.Files()
	require.ErrorIs(t, err, fileprovider.ErrNotInitialized, "初期化前の Files()")
	require.NoError(t, p.Initialize())

	want := []string{
		"Hotta/Content/SevenForest/Data/DT_TamingFood.uasset",
		"Hotta/Content/SevenForest/Data/DT_TamingFood.uexp",
		"Hotta/Content/Resources/Text/Game.locres",
	}
	assert.Equal(t, want, paths(t, p))
	assert.Equal(t, 1, p.PendingArchives())

	wrong := testKey
	wrong[0] ^= 0xFF
	n, err := p.SubmitKey(testGUID, wrong)
	assert.ErrorIs(t, err, upak.ErrInvalidKey)
	assert.Zero(t, n)
	assert.Equal(t, 1, p.PendingArchives(), "誤った鍵の後の PendingArchives()")

	n, err = p.SubmitKey(testGUID, testKey)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Zero(t, p.PendingArchives())

	want = append(want, "Hotta/Content/Resources/UI/Taming/WBP_Taming.uasset")
	assert.Equal(t, want, paths(t, p))

	f, ok := p.Lookup("hotta/content/resources/ui/taming/wbp_taming.uasset")
	require.True(t, ok, "Lookup() が暗号化アーカイブのファイルを見つけられません")
	data, err := p.Read(f)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Equal(t, "pakchunk1-WindowsNoEditor.pak", f.Archive)
}

func TestProvider_LoadPackage(t *testing.T) {
	p := newProvider(t, newGameFs(t))

	t.Run(".uexpと合わせて解析", func(t *testing.T) {
		f, ok := p.Lookup("Hotta/Content/SevenForest/Data/DT_TamingFood.uasset")
		require.True(t, ok)
		assert.Equal(t, "DT_TamingFood.uasset", f.Name())
		assert.Equal(t, "Hotta/Content/SevenForest/Data/DT_TamingFood", f.PathWithoutExtension())

		pkg, err := p.LoadPackage(f)
		require.NoError(t, err)
		assert.Equal(t, "Hotta/Content/SevenForest/Data/DT_TamingFood", pkg.Name)

		exports := pkg.GetExports()
		require.Len(t, exports, 1)
		assert.Equal(t, "DT_TamingFood", exports[0].Name)
		require.Len(t, exports[0].Properties, 1)
		assert.Equal(t, int32(3), exports[0].Properties[0].Value)
	})

	t.Run("パッケージ以外", func(t *testing.T) {
		f, _ := p.Lookup("Hotta/Content/Resources/Text/Game.locres")
		assert.False(t, f.IsPackage())
		_, err := p.LoadPackage(f)
		assert.ErrorIs(t, err, fileprovider.ErrNotPackage)
	})

	t.Run("nil", func(t *testing.T) {
		_, err := p.LoadPackage(nil)
		assert.ErrorIs(t, err, fileprovider.ErrFileNotFound)
	})
}

func TestProvider_Initialize(t *testing.T) {
	t.Run("ディレクトリがない", func(t *testing.T) {
		p := fileprovider.New(afero.NewMemMapFs(), "/missing", fileprovider.DefaultOptions())
		assert.ErrorIs(t, p.Initialize(), fileprovider.ErrDirectoryNotFound)
	})

	t.Run("壊れたpakは読み飛ばす", func(t *testing.T) {
		fsys := newGameFs(t)
		require.NoError(t, afero.WriteFile(fsys, gameDir+"/broken.pak", []byte("not a pak"), 0o644))
		p := newProvider(t, fsys)
		assert.Len(t, paths(t, p), 3)
	})

	t.Run("同じパスは後のアーカイブが優先", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writePak(t, fsys, "a.pak", upaktest.New(
			upaktest.File{Name: "Resources/Icon/Fox.uasset", Data: []byte("old")},
			upaktest.File{Name: "Resources/Icon/Cat.uasset", Data: []byte("cat")},
		))
		writePak(t, fsys, "b_P.pak", upaktest.New(
			upaktest.File{Name: "Resources/Icon/Fox.uasset", Data: []byte("new!")},
		))
		p := newProvider(t, fsys)

		want := []string{"Hotta/Content/Resources/Icon/Fox.uasset", "Hotta/Content/Resources/Icon/Cat.uasset"}
		assert.Equal(t, want, paths(t, p))
		f, _ := p.Lookup(want[0])
		data, err := p.Read(f)
		require.NoError(t, err)
		assert.Equal(t, "new!", string(data))
	})
}

func TestProvider_SubmitKeyKeepsMountOrder(t *testing.T) {
	fox := func(data string, encryptIndex bool) *upaktest.Builder {
		b := upaktest.New(upaktest.File{Name: "Resources/Icon/Fox.uasset", Data: []byte(data)})
		if encryptIndex {
			b.Key = testKey
			b.EncryptIndex = true
		}
		return b
	}

	tests := []struct {
		name           string
		baseEncrypted  bool
		patchEncrypted bool
	}{
		{name: "暗号化されたパッチが平文のベースを上書き", patchEncrypted: true},
		{name: "暗号化されたベースは平文のパッチを上書きしない", baseEncrypted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writePak(t, fsys, "a.pak", fox("old", tt.baseEncrypted))
			writePak(t, fsys, "b_P.pak", fox("new!", tt.patchEncrypted))
			p := newProvider(t, fsys)

			n, err := p.SubmitKey(uuid.Nil, testKey)
			require.NoError(t, err)
			require.Equal(t, 1, n)

			want := []string{"Hotta/Content/Resources/Icon/Fox.uasset"}
			assert.Equal(t, want, paths(t, p))

			f, ok := p.Lookup(want[0])
			require.True(t, ok)
			data, err := p.Read(f)
			require.NoError(t, err)
			assert.Equal(t, "new!", string(data))
			assert.Equal(t, "b_P.pak", f.Archive)
		})
	}
}

func TestProvider_SubmitKeyDataEncrypted(t *testing.T) {
	fsys := afero.NewMemMapFs()
	b := upaktest.New(upaktest.File{Name: "Resources/UI/Taming/WBP_Taming.uasset", Data: []byte("secret data"), Encrypt: true})
	b.Key = testKey
	writePak(t, fsys, "pakchunk0-WindowsNoEditor.pak", b)
	p := newProvider(t, fsys)

	f, ok := p.Lookup("Hotta/Content/Resources/UI/Taming/WBP_Taming.uasset")
	require.True(t, ok)
	_, err := p.Read(f)
	require.ErrorIs(t, err, upak.ErrKeyRequired, "鍵なしの Read()")

	// インデックスは平文なのでマウント数は0
	n, err := p.SubmitKey(uuid.Nil, testKey)
	require.NoError(t, err)
	assert.Zero(t, n)

	data, err := p.Read(f)
	require.NoError(t, err)
	assert.Equal(t, "secret data", string(data))
}
