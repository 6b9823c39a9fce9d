// Package selector はインデックスから処理対象のアセットを選びます
package selector

import (
	"path"
	"strings"

	"golang.org/x/text/cases"

	"github.com/shiroemons/go-hotta-extractor/internal/hotta/interfaces"
	"github.com/shiroemons/go-hotta-extractor/internal/hotta/models"
)

// Selection は選択結果です
type Selection struct {
	// Filtered は包含・除外フィルタを通過したアセット数（構造条件の適用前）です
	Filtered int
	// Assets は最終的な処理対象です
	Assets []models.AssetRecord
}

// Select はフィルタと条件に一致するアセットをインデックス順に返します。
// pred が nil の場合はフィルタのみで選択します。
func Select(records []models.AssetRecord, filters models.FilterSet, pred interfaces.Predicate) Selection {
	var sel Selection
	for _, r := range records {
		if !Included(r.Path, filters.Include) || Skipped(r.Path, filters.Skip) {
			continue
		}
		sel.Filtered++
		if pred != nil && !pred(r) {
			continue
		}
		sel.Assets = append(sel.Assets, r)
	}
	return sel
}

// Included はパスがいずれかのパターンを含むかを返します。
// パターンが空の場合はすべてのパスを含めます。
func Included(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	return containsAny(p, patterns)
}

// Skipped はパスがいずれかの除外パターンを含むかを返します
func Skipped(p string, patterns []string) bool {
	return containsAny(p, patterns)
}

func containsAny(s string, patterns []string) bool {
	for _, pat := range patterns {
		if strings.Contains(s, pat) {
			return true
		}
	}
	return false
}

// MarkerPredicate はキーに token を大文字小文字を区別せず含むアセットを選びます。
// token が空の場合はすべてのアセットを選びます。
func MarkerPredicate(token string) interfaces.Predicate {
	if token == "" {
		return func(models.AssetRecord) bool { return true }
	}
	needle := cases.Fold().String(token)
	return func(r models.AssetRecord) bool {
		return strings.Contains(cases.Fold().String(r.Key), needle)
	}
}

// PackagePredicate はパッケージ（.uasset / .umap）のみを選びます
func PackagePredicate() interfaces.Predicate {
	return func(r models.AssetRecord) bool {
		switch strings.ToLower(path.Ext(r.Path)) {
		case ".uasset", ".umap":
			return true
		}
		return false
	}
}

// All はすべての条件を満たすアセットを選びます
func All(preds ...interfaces.Predicate) interfaces.Predicate {
	return func(r models.AssetRecord) bool {
		for _, p := range preds {
			if p != nil && !p(r) {
				return false
			}
		}
		return true
	}
}
