package mocks

import (
	"github.com/google/uuid"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
	"github.com/shiroemons/go-hotta-extractor/pkg/crypto"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset"
)

// MockFileProvider はFileProviderのモック実装です
type MockFileProvider struct {
	Records  []models.AssetRecord
	Packages map[string]*uasset.Package // キーはAssetRecord.Path
	LoadErrs map[string]error
	Panics   map[string]any

	InitError   error
	SubmitError error
	FilesError  error

	Initialized bool
	Keys        []crypto.AESKey
	Loaded      []string
	Closed      bool
}

// NewMockFileProvider は新しいMockFileProviderを作成します
func NewMockFileProvider(records ...models.AssetRecord) *MockFileProvider {
	return &MockFileProvider{
		Records:  records,
		Packages: make(map[string]*uasset.Package),
		LoadErrs: make(map[string]error),
		Panics:   make(map[string]any),
	}
}

// Initialize はモック実装です
func (m *MockFileProvider) Initialize() error {
	if m.InitError != nil {
		return m.InitError
	}
	m.Initialized = true
	return nil
}

// SubmitKey はモック実装です
func (m *MockFileProvider) SubmitKey(_ uuid.UUID, key crypto.AESKey) error {
	m.Keys = append(m.Keys, key)
	return m.SubmitError
}

// Files はモック実装です
func (m *MockFileProvider) Files() ([]models.AssetRecord, error) {
	if m.FilesError != nil {
		return nil, m.FilesError
	}
	return m.Records, nil
}

// LoadPackage はモック実装です。Panics に登録されたパスではパニックします。
func (m *MockFileProvider) LoadPackage(record models.AssetRecord) (*uasset.Package, error) {
	m.Loaded = append(m.Loaded, record.Path)
	if v, ok := m.Panics[record.Path]; ok {
		panic(v)
	}
	if err, ok := m.LoadErrs[record.Path]; ok {
		return nil, err
	}
	if pkg, ok := m.Packages[record.Path]; ok {
		return pkg, nil
	}
	return &uasset.Package{Name: record.PathWithoutExtension}, nil
}

// Close はモック実装です
func (m *MockFileProvider) Close() error {
	m.Closed = true
	return nil
}
