package uasset

import (
	"fmt"

	"github.com/shiroemons/go-hotta-extractor/pkg/binutil"
)

// maxProperties は1オブジェクトから読み込むプロパティ数の上限です
const maxProperties = 1 << 14

// Property はタグ付きプロパティの1項目です
type Property struct {
	Name       string `json:"Name" yaml:"name"`
	Type       string `json:"Type" yaml:"type"`
	ArrayIndex int32  `json:"ArrayIndex,omitempty" yaml:"array_index,omitempty"`
	Value      any    `json:"Value" yaml:"value"`
}

// OpaqueValue は値を解釈しないプロパティの概要です
type OpaqueValue struct {
	Struct string `json:"Struct,omitempty" yaml:"struct,omitempty"`
	Inner  string `json:"Inner,omitempty" yaml:"inner,omitempty"`
	Size   int32  `json:"Size" yaml:"size"`
}

// SoftObjectPath はSoftObjectPropertyの値です
type SoftObjectPath struct {
	AssetPath string `json:"AssetPathName" yaml:"asset_path_name"`
	SubPath   string `json:"SubPathString,omitempty" yaml:"sub_path_string,omitempty"`
}

// propertyTag はFPropertyTagです
type propertyTag struct {
	name       string
	typ        string
	size       int32
	arrayIndex int32
	structName string
	enumName   string
	innerType  string
	boolValue  bool
}

// readProperties は "None" で終わるタグ付きプロパティ列を読み込みます
func (p *Package) readProperties(r *binutil.Reader) ([]Property, error) {
	var props []Property
	for len(props) < maxProperties {
		tag, err := p.readTag(r)
		if err != nil {
			return props, err
		}
		if tag == nil {
			return props, nil
		}

		raw, err := r.Bytes(int(tag.size))
		if err != nil {
			return props, fmt.Errorf("%s: %w", tag.name, err)
		}

		value, err := p.decodeValue(tag, binutil.NewReader(raw))
		if err != nil {
			return props, fmt.Errorf("%s: %w", tag.name, err)
		}
		props = append(props, Property{
			Name:       tag.name,
			Type:       tag.typ,
			ArrayIndex: tag.arrayIndex,
			Value:      value,
		})
	}
	return props, fmt.Errorf("%w: プロパティ数が上限を超えました", ErrCorruptPackage)
}

// readTag はプロパティタグを読み込みます。終端（None）の場合はnilを返します
func (p *Package) readTag(r *binutil.Reader) (*propertyTag, error) {
	ver := p.Summary.FileVersionUE4
	tag := &propertyTag{}

	var err error
	if tag.name, err = p.readName(r); err != nil {
		return nil, err
	}
	if tag.name == "None" {
		return nil, nil
	}
	if tag.typ, err = p.readName(r); err != nil {
		return nil, err
	}
	if tag.size, err = r.Int32(); err != nil {
		return nil, err
	}
	if tag.size < 0 {
		return nil, fmt.Errorf("%w: %s のサイズ %d", ErrCorruptPackage, tag.name, tag.size)
	}
	if tag.arrayIndex, err = r.Int32(); err != nil {
		return nil, err
	}

	switch tag.typ {
	case "StructProperty":
		if tag.structName, err = p.readName(r); err != nil {
			return nil, err
		}
		if ver >= VerUE4StructGUIDInPropertyTag {
			err = r.Skip(16)
		}
	case "BoolProperty":
		tag.boolValue, err = r.Bool()
	case "ByteProperty", "EnumProperty":
		tag.enumName, err = p.readName(r)
	case "ArrayProperty":
		if ver >= VerUE4ArrayPropertyInnerTags {
			tag.innerType, err = p.readName(r)
		}
	case "SetProperty":
		if ver >= VerUE4PropertyTagSetMapSupport {
			tag.innerType, err = p.readName(r)
		}
	case "MapProperty":
		if ver >= VerUE4PropertyTagSetMapSupport {
			if tag.innerType, err = p.readName(r); err == nil {
				_, err = p.readName(r) // ValueType
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if ver >= VerUE4PropertyGUIDInPropertyTag {
		hasGUID, err := r.Bool()
		if err != nil {
			return nil, err
		}
		if hasGUID {
			if err := r.Skip(16); err != nil {
				return nil, err
			}
		}
	}
	return tag, nil
}

// decodeValue はタグの型に応じて値を解釈します
func (p *Package) decodeValue(tag *propertyTag, r *binutil.Reader) (any, error) {
	switch tag.typ {
	case "BoolProperty":
		return tag.boolValue, nil
	case "ByteProperty":
		if tag.size == 1 {
			return r.Uint8()
		}
		return p.readName(r)
	case "EnumProperty":
		return p.readName(r)
	case "StructProperty":
		return OpaqueValue{Struct: tag.structName, Size: tag.size}, nil
	case "ArrayProperty":
		return p.decodeArray(tag, r)
	case "SetProperty", "MapProperty", "TextProperty", "DelegateProperty", "MulticastDelegateProperty":
		return OpaqueValue{Inner: tag.innerType, Size: tag.size}, nil
	}
	return p.decodeScalar(tag.typ, r, tag.size)
}

// decodeScalar は固定形式の値を読み込みます
func (p *Package) decodeScalar(typ string, r *binutil.Reader, size int32) (any, error) {
	switch typ {
	case "Int8Property":
		return r.Int8()
	case "Int16Property":
		return r.Int16()
	case "IntProperty":
		return r.Int32()
	case "Int64Property":
		return r.Int64()
	case "UInt16Property":
		return r.Uint16()
	case "UInt32Property":
		return r.Uint32()
	case "UInt64Property":
		return r.Uint64()
	case "FloatProperty":
		return r.Float32()
	case "DoubleProperty":
		return r.Float64()
	case "NameProperty":
		return p.readName(r)
	case "StrProperty":
		return r.FString()
	case "ObjectProperty", "ClassProperty", "WeakObjectProperty", "LazyObjectProperty":
		index, err := r.Int32()
		if err != nil {
			return nil, err
		}
		return p.ResolveIndex(index), nil
	case "SoftObjectProperty", "SoftClassProperty":
		path, err := p.readName(r)
		if err != nil {
			return nil, err
		}
		sub, err := r.FString()
		if err != nil {
			return nil, err
		}
		return SoftObjectPath{AssetPath: path, SubPath: sub}, nil
	default:
		return OpaqueValue{Size: size}, nil
	}
}

// decodeArray は要素が固定形式の配列を読み込みます
func (p *Package) decodeArray(tag *propertyTag, r *binutil.Reader) (any, error) {
	count, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if count < 0 || int(count) > r.Remaining() {
		return nil, fmt.Errorf("%w: 配列の要素数 %d", ErrCorruptPackage, count)
	}

	switch tag.innerType {
	case "BoolProperty", "ByteProperty":
		values := make([]any, 0, count)
		for i := int32(0); i < count; i++ {
			v, err := r.Uint8()
			if err != nil {
				return nil, err
			}
			if tag.innerType == "BoolProperty" {
				values = append(values, v != 0)
			} else {
				values = append(values, v)
			}
		}
		return values, nil
	case "StructProperty", "ArrayProperty", "SetProperty", "MapProperty", "TextProperty", "":
		return OpaqueValue{Inner: tag.innerType, Size: tag.size}, nil
	}

	values := make([]any, 0, count)
	for i := int32(0); i < count; i++ {
		v, err := p.decodeScalar(tag.innerType, r, 0)
		if err != nil {
			return nil, err
		}
		if _, opaque := v.(OpaqueValue); opaque {
			return OpaqueValue{Inner: tag.innerType, Size: tag.size}, nil
		}
		values = append(values, v)
	}
	return values, nil
}
