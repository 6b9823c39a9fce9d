// Package models はhotta_extractorコマンドで使用するデータモデルを定義します
package models

import "time"

// AssetRecord はアーカイブのインデックスにある1アセットを表します
type AssetRecord struct {
	Key                  string // インデックスのキー（小文字化したパス）
	Path                 string
	Name                 string
	PathWithoutExtension string
	Archive              string // 格納しているpakファイル名
	Size                 int64
}

// FilterSet はパスの選択に使う部分文字列の組です
type FilterSet struct {
	Include []string
	Skip    []string
}

// 出力形式
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ExtractionRequest は1回の実行に必要な設定です。
// 実行開始時に一度だけ作られ、以降変更されません。
type ExtractionRequest struct {
	GameDir      string
	OutputDir    string
	Key          string
	Filters      FilterSet
	Marker       string
	PackagesOnly bool
	Format       string
	DryRun       bool
	Debug        bool
}

// HasKey はAESキーが指定されているかを返します
func (r ExtractionRequest) HasKey() bool {
	return r.Key != ""
}

// Outcome は1アセットの処理結果です。
// Err が nil なら成功で、PackageName と Objects が設定されます。
type Outcome struct {
	Asset       AssetRecord
	PackageName string
	Objects     []string
	Err         error
	Detail      string
}

// Succeeded は処理が成功したかを返します
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Succeed は成功した結果を作成します
func Succeed(asset AssetRecord, packageName string, objects []string) Outcome {
	return Outcome{Asset: asset, PackageName: packageName, Objects: objects}
}

// Fail は失敗した結果を作成します
func Fail(asset AssetRecord, err error, detail string) Outcome {
	return Outcome{Asset: asset, Err: err, Detail: detail}
}

// Summary は実行全体の集計です
type Summary struct {
	Indexed   int
	Filtered  int
	Selected  int
	Succeeded int
	Failed    int
	Objects   int
	Elapsed   time.Duration
}

// Add は1アセットの結果を集計に加えます
func (s *Summary) Add(o Outcome) {
	if o.Succeeded() {
		s.Succeeded++
		s.Objects += len(o.Objects)
		return
	}
	s.Failed++
}
