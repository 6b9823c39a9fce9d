// Package uassettest はテスト用の分割パッケージ（.uasset / .uexp）を組み立てます
package uassettest

import (
	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
	"github.com/shiroemons/go-hotta-extractor/pkg/uasset"
)

// Name はNamePropertyの値です
type Name string

// Ref はObjectPropertyの値（インポートされたクラス名）です
type Ref string

// Property はエクスポートに書き込むタグ付きプロパティです。
// Value は int32, float32, bool, string, Name, Ref のいずれかです。
type Property struct {
	Name  string
	Value any
}

// Export は書き込むオブジェクトです
type Export struct {
	Class      string
	Name       string
	Properties []Property
}

// Builder はクック済みの分割パッケージを組み立てます
type Builder struct {
	Folder       string
	Unversioned  bool
	Exports      []Export
	CorruptNames bool

	names   []string
	nameIdx map[string]int32
	imports []string
}

// New はBuilderを作成します
func New(exports ...Export) *Builder {
	return &Builder{Folder: "None", Exports: exports}
}

func (b *Builder) name(s string) int32 {
	if i, ok := b.nameIdx[s]; ok {
		return i
	}
	i := int32(len(b.names))
	b.names = append(b.names, s)
	b.nameIdx[s] = i
	return i
}

func (b *Builder) fname(w *binutil.Writer, s string) {
	w.Int32(b.name(s)).Int32(0)
}

func (b *Builder) importIndex(class string) int32 {
	for i, c := range b.imports {
		if c == class {
			return -int32(i) - 1
		}
	}
	b.name(class)
	b.imports = append(b.imports, class)
	return -int32(len(b.imports))
}

// Build は.uassetと.uexpのバイト列を返します
func (b *Builder) Build() (uassetData, uexpData []byte) {
	b.names = nil
	b.nameIdx = map[string]int32{}
	b.imports = nil

	for _, n := range []string{"None", "/Script/CoreUObject", "Class", "IntProperty", "FloatProperty",
		"BoolProperty", "StrProperty", "NameProperty", "ObjectProperty"} {
		b.name(n)
	}

	classIdx := make([]int32, len(b.Exports))
	for i, e := range b.Exports {
		classIdx[i] = b.importIndex(e.Class)
		b.name(e.Class)
		b.name(e.Name)
	}

	uexp := binutil.NewWriter()
	spans := make([][2]int64, len(b.Exports))
	for i, e := range b.Exports {
		start := uexp.Len()
		for _, p := range e.Properties {
			b.writeProperty(uexp, p)
		}
		b.fname(uexp, "None")
		spans[i] = [2]int64{int64(start), int64(uexp.Len() - start)}
	}

	names := binutil.NewWriter()
	for _, n := range b.names {
		names.FString(n).Uint32(0)
	}
	if b.CorruptNames {
		names = binutil.NewWriter().Int32(-(binutil.MaxStringLength + 10))
	}

	imports := binutil.NewWriter()
	for _, class := range b.imports {
		b.fname(imports, "/Script/CoreUObject")
		b.fname(imports, "Class")
		imports.Int32(0)
		b.fname(imports, class)
	}

	summarySize := len(b.summary(0, 0, 0, 0))
	nameOffset := summarySize
	importOffset := nameOffset + names.Len()
	exportOffset := importOffset + imports.Len()
	exportSize := 4*4 + 8 + 4 + 8 + 8 + 4*3 + 16 + 4 + 4 + 4 + 4*5
	total := exportOffset + exportSize*len(b.Exports)

	exports := binutil.NewWriter()
	for i, e := range b.Exports {
		exports.Int32(classIdx[i]).Int32(0).Int32(0).Int32(0)
		b.fname(exports, e.Name)
		exports.Uint32(0x1) // RF_Public
		exports.Int64(spans[i][1]).Int64(int64(total) + spans[i][0])
		exports.Int32(0).Int32(0).Int32(0)
		exports.Raw(make([]byte, 16))
		exports.Uint32(0)
		exports.Int32(0).Int32(1)
		exports.Int32(-1).Int32(0).Int32(0).Int32(0).Int32(0)
	}

	out := binutil.NewWriter()
	out.Raw(b.summary(int32(total), int32(nameOffset), int32(importOffset), int32(exportOffset)))
	out.Raw(names.Bytes()).Raw(imports.Bytes()).Raw(exports.Bytes())

	uexp.Uint32(uasset.PackageTag)
	return out.Bytes(), uexp.Bytes()
}

func (b *Builder) summary(total, nameOffset, importOffset, exportOffset int32) []byte {
	w := binutil.NewWriter()
	w.Uint32(uasset.PackageTag)
	w.Int32(-7)
	w.Int32(864)
	if b.Unversioned {
		w.Int32(0).Int32(0)
	} else {
		w.Int32(uasset.VerUE4Automatic).Int32(0)
	}
	w.Int32(0) // custom versions
	w.Int32(total)
	w.FString(b.Folder)

	flags := uasset.PkgFilterEditorOnly
	if b.Unversioned {
		flags |= uasset.PkgUnversionedProperties
	}
	w.Uint32(flags)
	w.Int32(int32(len(b.names))).Int32(nameOffset)
	w.Int32(0).Int32(0) // gatherable text
	w.Int32(int32(len(b.Exports))).Int32(exportOffset)
	w.Int32(int32(len(b.imports))).Int32(importOffset)
	return w.Bytes()
}

func (b *Builder) writeProperty(w *binutil.Writer, p Property) {
	value := binutil.NewWriter()
	var typ string
	var boolValue *bool

	switch v := p.Value.(type) {
	case int32:
		typ = "IntProperty"
		value.Int32(v)
	case float32:
		typ = "FloatProperty"
		value.Float32(v)
	case bool:
		typ = "BoolProperty"
		boolValue = &v
	case string:
		typ = "StrProperty"
		value.FString(v)
	case Name:
		typ = "NameProperty"
		b.fname(value, string(v))
	case Ref:
		typ = "ObjectProperty"
		value.Int32(b.importIndex(string(v)))
	default:
		panic("uassettest: unsupported property value")
	}

	b.fname(w, p.Name)
	b.fname(w, typ)
	w.Int32(int32(value.Len()))
	w.Int32(0)
	if boolValue != nil {
		w.Bool(*boolValue)
	}
	w.Uint8(0) // HasPropertyGuid
	w.Raw(value.Bytes())
}
