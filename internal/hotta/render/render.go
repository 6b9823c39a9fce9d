// Package render はエクスポートされたオブジェクトをインデント付きのテキストに変換します
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/interfaces"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
)

// ErrUnknownFormat は未対応の出力形式が指定された場合のエラー
var ErrUnknownFormat = errors.New("未対応の出力形式です")

// indent はインデントの幅です
const indent = 2

// New は形式名に対応するRendererを返します
func New(format string) (interfaces.Renderer, error) {
	switch strings.ToLower(format) {
	case models.FormatJSON, "":
		return JSON{}, nil
	case models.FormatYAML, "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// JSON はインデント付きJSONで出力します
type JSON struct{}

// Render はvをJSONに変換します
func (JSON) Render(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", indent))
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// YAML はYAMLで出力します
type YAML struct{}

// Render はvをYAMLに変換します
func (YAML) Render(v any) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
