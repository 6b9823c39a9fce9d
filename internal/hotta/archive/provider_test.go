package archive

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/fileutil"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset/uassettest"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak"
	"github.com/shiroemons/go-hotta-extractor/pkg/upak/upaktest"
)

const paksDir = "/Tower of Fantasy/Hotta/Content/Paks"

var testKey = crypto.AESKey{
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10,
	0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18,
	0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F, 0x20,
}

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()

	header, body := uassettest.New(
		uassettest.Export{Class: "DataTable", Name: "DT_TamingFood"},
		uassettest.Export{Class: "DataTable", Name: "DT_TamingFood_Extra"},
	).Build()

	base := upaktest.New(
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uasset", Data: header},
		upaktest.File{Name: "SevenForest/Data/DT_TamingFood.uexp", Data: body},
	)
	require.NoError(t, afero.WriteFile(fsys, paksDir+"/pakchunk0-WindowsNoEditor.pak", base.Build(), 0o644))

	patch := upaktest.New(upaktest.File{Name: "Resources/Icon/IconFox.uasset", Data: header, Encrypt: true})
	patch.Key = testKey
	patch.EncryptIndex = true
	require.NoError(t, afero.WriteFile(fsys, paksDir+"/pakchunk0-WindowsNoEditor_0_P.pak", patch.Build(), 0o644))

	return fsys
}

func TestProvider(t *testing.T) {
	p := NewProvider(newFs(t), paksDir, nil)
	defer p.Close()

	_, err := p.Files()
	require.Error(t, err, "初期化前はエラーになるはずです")

	require.NoError(t, p.Initialize())

	records, err := p.Files()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AssetRecord{
		Key:                  "hotta/content/sevenforest/data/dt_tamingfood.uasset",
		Path:                 "Hotta/Content/SevenForest/Data/DT_TamingFood.uasset",
		Name:                 "DT_TamingFood.uasset",
		PathWithoutExtension: "Hotta/Content/SevenForest/Data/DT_TamingFood",
		Archive:              "pakchunk0-WindowsNoEditor.pak",
		Size:                 records[0].Size,
	}, records[0])

	pkg, err := p.LoadPackage(records[0])
	require.NoError(t, err)
	assert.Len(t, pkg.GetExports(), 2)

	_, err = p.LoadPackage(models.AssetRecord{Key: "missing", Path: "Missing.uasset"})
	assert.ErrorIs(t, err, ErrAssetNotFound)

	t.Run("鍵の登録", func(t *testing.T) {
		wrong := testKey
		wrong[31] = 0
		assert.ErrorIs(t, p.SubmitKey(uuid.Nil, wrong), upak.ErrInvalidKey)

		require.NoError(t, p.SubmitKey(uuid.Nil, testKey))
		records, err := p.Files()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "Hotta/Content/Resources/Icon/IconFox.uasset", records[2].Path)
		assert.Equal(t, "pakchunk0-WindowsNoEditor_0_P.pak", records[2].Archive)
	})
}

func TestProvider_InitializeError(t *testing.T) {
	tests := []struct {
		name    string
		fsys    afero.Fs
		wantErr error
	}{
		{name: "ディレクトリがない", fsys: afero.NewMemMapFs(), wantErr: ErrInitialize},
		{
			name: "pakがない",
			fsys: func() afero.Fs {
				fsys := afero.NewMemMapFs()
				_ = fsys.MkdirAll(paksDir, 0o755)
				return fsys
			}(),
			wantErr: fileutil.ErrNoPakFiles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProvider(tt.fsys, paksDir, nil).Initialize()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}
