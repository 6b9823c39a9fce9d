package mocks

import "fmt"

// MockRenderer はRendererのモック実装です
type MockRenderer struct {
	// Fail が true を返す値ではエラーを返します
	Fail  func(v any) bool
	Error error
}

// Render はモック実装です
func (m *MockRenderer) Render(v any) (string, error) {
	if m.Fail != nil && m.Fail(v) {
		return "", m.Error
	}
	return fmt.Sprintf("%+v", v), nil
}
