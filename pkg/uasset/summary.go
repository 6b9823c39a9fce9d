package uasset

import (
	"fmt"

	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
)

// PackageTag はパッケージファイル先頭の識別子です
const PackageTag uint32 = 0x9E2A83C1

// パッケージフラグ
const (
	PkgUnversionedProperties uint32 = 0x00002000
	PkgFilterEditorOnly      uint32 = 0x80000000
)

// UE4のオブジェクトバージョン
const (
	VerUE4OldestLoadable                     int32 = 214
	VerUE4LoadForEditorGame                  int32 = 365
	VerUE4StructGUIDInPropertyTag            int32 = 441
	VerUE4SerializeTextInPackages            int32 = 459
	VerUE4CookedAssetsInEditorSupport        int32 = 485
	VerUE4ArrayPropertyInnerTags             int32 = 500
	VerUE4PropertyGUIDInPropertyTag          int32 = 503
	VerUE4NameHashesSerialized               int32 = 504
	VerUE4PreloadDependenciesInCookedExports int32 = 507
	VerUE4TemplateIndexInCookedExports       int32 = 508
	VerUE4PropertyTagSetMapSupport           int32 = 509
	VerUE4ExportMapSerialSizes64             int32 = 511
	VerUE4PackageSummaryLocalizationID       int32 = 516
	VerUE4NonOuterPackageImport              int32 = 520
	VerUE4Automatic                          int32 = 522
)

// レガシーファイルバージョンの範囲
const (
	legacyFileVersionNewest int32 = -8
	legacyFileVersionOldest int32 = -2
)

// Summary はFPackageFileSummaryのうちテーブルの読み込みに必要な部分です
type Summary struct {
	LegacyFileVersion      int32
	FileVersionUE4         int32
	FileVersionLicenseeUE4 int32
	Unversioned            bool
	TotalHeaderSize        int32
	FolderName             string
	PackageFlags           uint32
	NameCount              int32
	NameOffset             int32
	ExportCount            int32
	ExportOffset           int32
	ImportCount            int32
	ImportOffset           int32
}

// FilterEditorOnly はエディタ専用データが除かれたパッケージかを返します
func (s *Summary) FilterEditorOnly() bool {
	return s.PackageFlags&PkgFilterEditorOnly != 0
}

// UnversionedProperties はプロパティがタグなしで保存されているかを返します
func (s *Summary) UnversionedProperties() bool {
	return s.PackageFlags&PkgUnversionedProperties != 0
}

// readSummary はパッケージ先頭のサマリを読み込みます。
// バージョンが記録されていない場合は defaultUE4Version を使用します。
func readSummary(r *binutil.Reader, defaultUE4Version int32) (*Summary, error) {
	tag, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if tag != PackageTag {
		return nil, fmt.Errorf("%w: %#08x", ErrInvalidTag, tag)
	}

	s := &Summary{}
	if s.LegacyFileVersion, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.LegacyFileVersion < legacyFileVersionNewest || s.LegacyFileVersion > legacyFileVersionOldest {
		return nil, fmt.Errorf("%w: レガシーバージョン %d", ErrUnsupportedVersion, s.LegacyFileVersion)
	}

	if s.LegacyFileVersion != -4 {
		if err := r.Skip(4); err != nil { // LegacyUE3Version
			return nil, err
		}
	}
	if s.FileVersionUE4, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.LegacyFileVersion <= -8 {
		if err := r.Skip(4); err != nil { // FileVersionUE5
			return nil, err
		}
	}
	if s.FileVersionLicenseeUE4, err = r.Int32(); err != nil {
		return nil, err
	}
	if err := skipCustomVersions(r, s.LegacyFileVersion); err != nil {
		return nil, err
	}

	if s.FileVersionUE4 == 0 && s.FileVersionLicenseeUE4 == 0 {
		s.Unversioned = true
		s.FileVersionUE4 = defaultUE4Version
	}
	if s.FileVersionUE4 < VerUE4OldestLoadable {
		return nil, fmt.Errorf("%w: UE4バージョン %d", ErrUnsupportedVersion, s.FileVersionUE4)
	}

	if s.TotalHeaderSize, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.FolderName, err = r.FString(); err != nil {
		return nil, err
	}
	if s.PackageFlags, err = r.Uint32(); err != nil {
		return nil, err
	}
	if s.NameCount, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.NameOffset, err = r.Int32(); err != nil {
		return nil, err
	}

	if s.FileVersionUE4 >= VerUE4PackageSummaryLocalizationID && !s.FilterEditorOnly() {
		if _, err := r.FString(); err != nil { // LocalizationId
			return nil, err
		}
	}
	if s.FileVersionUE4 >= VerUE4SerializeTextInPackages {
		if err := r.Skip(8); err != nil { // GatherableTextData
			return nil, err
		}
	}

	if s.ExportCount, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.ExportOffset, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.ImportCount, err = r.Int32(); err != nil {
		return nil, err
	}
	if s.ImportOffset, err = r.Int32(); err != nil {
		return nil, err
	}
	return s, nil
}

// skipCustomVersions はカスタムバージョンのコンテナを読み飛ばします
func skipCustomVersions(r *binutil.Reader, legacy int32) error {
	if legacy > -2 {
		return nil
	}

	count, err := r.Int32()
	if err != nil {
		return err
	}
	if count < 0 || int(count) > r.Remaining() {
		return fmt.Errorf("%w: カスタムバージョン数 %d", ErrCorruptPackage, count)
	}

	for i := int32(0); i < count; i++ {
		switch {
		case legacy == -2:
			err = r.Skip(8) // Tag + Version
		case legacy >= -5:
			if err = r.Skip(20); err == nil { // Key + Version
				_, err = r.FString()
			}
		default:
			err = r.Skip(20) // Key + Version
		}
		if err != nil {
			return err
		}
	}
	return nil
}
