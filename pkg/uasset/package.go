// Package uasset はUnreal Engineのパッケージ（.uasset / .uexp）を解析し、
// エクスポートされたオブジェクトの一覧とタグ付きプロパティを取り出します。
package uasset

import (
	"fmt"
	"strconv"

	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
)

// Options は解析時の設定です
type Options struct {
	// DefaultUE4Version はバージョンが記録されていないパッケージに適用するUE4バージョンです
	DefaultUE4Version int32
	// SkipProperties はプロパティの解析を省略します
	SkipProperties bool
}

// DefaultOptions はUE4.26相当の既定値です
func DefaultOptions() Options {
	return Options{DefaultUE4Version: VerUE4Automatic}
}

// Import はインポートテーブルの1項目です
type Import struct {
	ClassPackage string
	ClassName    string
	OuterIndex   int32
	ObjectName   string
}

// Export はパッケージからエクスポートされた1オブジェクトです
type Export struct {
	Type            string     `json:"Type" yaml:"type"`
	Name            string     `json:"Name" yaml:"name"`
	Outer           string     `json:"Outer,omitempty" yaml:"outer,omitempty"`
	Super           string     `json:"Super,omitempty" yaml:"super,omitempty"`
	Template        string     `json:"Template,omitempty" yaml:"template,omitempty"`
	Flags           uint32     `json:"Flags" yaml:"flags"`
	SerialOffset    int64      `json:"SerialOffset" yaml:"serial_offset"`
	SerialSize      int64      `json:"SerialSize" yaml:"serial_size"`
	Properties      []Property `json:"Properties,omitempty" yaml:"properties,omitempty"`
	PropertiesError string     `json:"PropertiesError,omitempty" yaml:"properties_error,omitempty"`

	classIndex, superIndex, templateIndex, outerIndex int32
}

// Package は解析済みのパッケージです
type Package struct {
	Name    string
	Summary *Summary
	Names   []string
	Imports []Import
	Exports []Export
}

// GetExports はエクスポートされたオブジェクトを格納順に返します
func (p *Package) GetExports() []Export {
	return p.Exports
}

// Parse は.uassetと（分割されている場合は）.uexpのデータからパッケージを解析します。
// uexp が nil の場合はヘッダとエクスポートデータが同じファイルにあるものとして扱います。
func Parse(name string, uasset, uexp []byte, opts Options) (*Package, error) {
	r := binutil.NewReader(uasset)

	summary, err := readSummary(r, opts.DefaultUE4Version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	p := &Package{Name: name, Summary: summary}
	if err := p.readNames(r); err != nil {
		return nil, fmt.Errorf("%w: %s: ネームテーブル: %w", ErrCorruptPackage, name, err)
	}
	if err := p.readImports(r); err != nil {
		return nil, fmt.Errorf("%w: %s: インポートテーブル: %w", ErrCorruptPackage, name, err)
	}
	if err := p.readExports(r); err != nil {
		return nil, fmt.Errorf("%w: %s: エクスポートテーブル: %w", ErrCorruptPackage, name, err)
	}
	p.resolveExports()

	if opts.SkipProperties || summary.UnversionedProperties() {
		return p, nil
	}

	for i := range p.Exports {
		e := &p.Exports[i]
		data, err := exportData(summary, uasset, uexp, e)
		if err != nil {
			e.PropertiesError = err.Error()
			continue
		}
		props, err := p.readProperties(binutil.NewReader(data))
		e.Properties = props
		if err != nil {
			e.PropertiesError = err.Error()
		}
	}
	return p, nil
}

func (p *Package) readNames(r *binutil.Reader) error {
	s := p.Summary
	if s.NameCount < 0 || int(s.NameCount) > r.Len() {
		return fmt.Errorf("名前の数が不正です: %d", s.NameCount)
	}
	if err := r.Seek(int(s.NameOffset)); err != nil {
		return err
	}

	p.Names = make([]string, 0, s.NameCount)
	for i := int32(0); i < s.NameCount; i++ {
		name, err := r.FString()
		if err != nil {
			return err
		}
		if s.FileVersionUE4 >= VerUE4NameHashesSerialized {
			if err := r.Skip(4); err != nil {
				return err
			}
		}
		p.Names = append(p.Names, name)
	}
	return nil
}

func (p *Package) readImports(r *binutil.Reader) error {
	s := p.Summary
	if s.ImportCount < 0 || int(s.ImportCount) > r.Len() {
		return fmt.Errorf("インポート数が不正です: %d", s.ImportCount)
	}
	if err := r.Seek(int(s.ImportOffset)); err != nil {
		return err
	}

	p.Imports = make([]Import, s.ImportCount)
	for i := range p.Imports {
		imp := &p.Imports[i]
		var err error
		if imp.ClassPackage, err = p.readName(r); err != nil {
			return err
		}
		if imp.ClassName, err = p.readName(r); err != nil {
			return err
		}
		if imp.OuterIndex, err = r.Int32(); err != nil {
			return err
		}
		if imp.ObjectName, err = p.readName(r); err != nil {
			return err
		}
		if s.FileVersionUE4 >= VerUE4NonOuterPackageImport && !s.FilterEditorOnly() {
			if _, err := p.readName(r); err != nil { // PackageName
				return err
			}
		}
	}
	return nil
}

func (p *Package) readExports(r *binutil.Reader) error {
	s := p.Summary
	if s.ExportCount < 0 || int(s.ExportCount) > r.Len() {
		return fmt.Errorf("エクスポート数が不正です: %d", s.ExportCount)
	}
	if err := r.Seek(int(s.ExportOffset)); err != nil {
		return err
	}

	p.Exports = make([]Export, s.ExportCount)
	for i := range p.Exports {
		if err := p.readExport(r, &p.Exports[i]); err != nil {
			return fmt.Errorf("エクスポート %d: %w", i, err)
		}
	}
	return nil
}

func (p *Package) readExport(r *binutil.Reader, e *Export) error {
	ver := p.Summary.FileVersionUE4

	var err error
	if e.classIndex, err = r.Int32(); err != nil {
		return err
	}
	if e.superIndex, err = r.Int32(); err != nil {
		return err
	}
	if ver >= VerUE4TemplateIndexInCookedExports {
		if e.templateIndex, err = r.Int32(); err != nil {
			return err
		}
	}
	if e.outerIndex, err = r.Int32(); err != nil {
		return err
	}
	if e.Name, err = p.readName(r); err != nil {
		return err
	}
	if e.Flags, err = r.Uint32(); err != nil {
		return err
	}

	if ver >= VerUE4ExportMapSerialSizes64 {
		if e.SerialSize, err = r.Int64(); err != nil {
			return err
		}
		if e.SerialOffset, err = r.Int64(); err != nil {
			return err
		}
	} else {
		size, err := r.Int32()
		if err != nil {
			return err
		}
		offset, err := r.Int32()
		if err != nil {
			return err
		}
		e.SerialSize, e.SerialOffset = int64(size), int64(offset)
	}

	// bForcedExport, bNotForClient, bNotForServer, PackageGuid, PackageFlags
	skip := 4*3 + 16 + 4
	if ver >= VerUE4LoadForEditorGame {
		skip += 4
	}
	if ver >= VerUE4CookedAssetsInEditorSupport {
		skip += 4
	}
	if ver >= VerUE4PreloadDependenciesInCookedExports {
		skip += 4 * 5
	}
	return r.Skip(skip)
}

// resolveExports はパッケージインデックスを名前に解決します
func (p *Package) resolveExports() {
	for i := range p.Exports {
		e := &p.Exports[i]
		e.Type = p.ResolveIndex(e.classIndex)
		e.Super = p.ResolveIndex(e.superIndex)
		e.Template = p.ResolveIndex(e.templateIndex)
		e.Outer = p.ResolveIndex(e.outerIndex)
	}
}

// ResolveIndex はパッケージインデックスの指すオブジェクト名を返します。
// 正ならエクスポート、負ならインポート、0は空文字列です。
func (p *Package) ResolveIndex(index int32) string {
	switch {
	case index > 0 && int(index) <= len(p.Exports):
		return p.Exports[index-1].Name
	case index < 0 && int(-index) <= len(p.Imports):
		return p.Imports[-index-1].ObjectName
	default:
		return ""
	}
}

// readName はFName（ネームテーブルの番号とインスタンス番号）を読み込みます
func (p *Package) readName(r *binutil.Reader) (string, error) {
	index, err := r.Int32()
	if err != nil {
		return "", err
	}
	number, err := r.Int32()
	if err != nil {
		return "", err
	}
	if index < 0 || int(index) >= len(p.Names) {
		return "", fmt.Errorf("%w: %d", ErrInvalidName, index)
	}

	name := p.Names[index]
	if number > 0 {
		name += "_" + strconv.Itoa(int(number-1))
	}
	return name, nil
}

// exportData はエクスポートのシリアライズ済みデータを返します
func exportData(s *Summary, uasset, uexp []byte, e *Export) ([]byte, error) {
	data, off := uasset, e.SerialOffset
	if uexp != nil && off >= int64(s.TotalHeaderSize) {
		data, off = uexp, off-int64(s.TotalHeaderSize)
	}
	if off < 0 || e.SerialSize < 0 || off+e.SerialSize > int64(len(data)) {
		return nil, fmt.Errorf("%w: データ範囲 %d+%d", ErrCorruptPackage, e.SerialOffset, e.SerialSize)
	}
	return data[off : off+e.SerialSize], nil
}
