// Package fileutil はゲームディレクトリ内のファイル操作のユーティリティ関数を提供します
package fileutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

var (
	// PakFilePattern は pakchunk0-WindowsNoEditor.pak や pakchunk0_s1-WindowsNoEditor_0_P.pak のパターン
	PakFilePattern = regexp.MustCompile(`(?i)\.pak$`)

	// patchPattern はパッチpak（"_P.pak" や "_12_P.pak"）のパターン
	patchPattern = regexp.MustCompile(`(?i)(?:_(\d+))?_P\.pak$`)
)

// PakFile はディレクトリ内で見つかったpakファイルです
type PakFile struct {
	Path  string
	Size  int64
	Patch bool
	// Order はパッチpakの番号で、大きいほど後にマウントされます
	Order int
}

// IsPatchPak はファイル名がパッチpakかを返し、パッチ番号を返します
func IsPatchPak(name string) (bool, int) {
	m := patchPattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return false, 0
	}
	n, _ := strconv.Atoi(m[1])
	return true, n
}

// ListPakFiles はdir以下のpakファイルをマウント順に返します。
// 通常のpakを名前順に並べ、その後にパッチpakを番号順に並べます。
func ListPakFiles(fsys afero.Fs, dir string) ([]PakFile, error) {
	var paks []PakFile
	err := afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !PakFilePattern.MatchString(info.Name()) {
			return nil
		}
		patch, order := IsPatchPak(path)
		paks = append(paks, PakFile{Path: path, Size: info.Size(), Patch: patch, Order: order})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReadDirectory, dir, err)
	}

	sort.SliceStable(paks, func(i, j int) bool {
		a, b := paks[i], paks[j]
		if a.Patch != b.Patch {
			return !a.Patch
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return strings.ToLower(a.Path) < strings.ToLower(b.Path)
	})
	return paks, nil
}

// FindPakFiles はdir以下のpakファイルのパスをマウント順に返します。
// pakが1つもない場合は ErrNoPakFiles を返します。
func FindPakFiles(fsys afero.Fs, dir string) ([]string, error) {
	paks, err := ListPakFiles(fsys, dir)
	if err != nil {
		return nil, err
	}
	if len(paks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPakFiles, dir)
	}

	paths := make([]string, len(paks))
	for i, p := range paks {
		paths[i] = p.Path
	}
	return paths, nil
}
