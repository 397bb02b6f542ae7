// Package solfiles locates Solidity sources under a project path and
// maps byte offsets to line numbers, shared by all backend adapters.
package solfiles

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Collect returns the Solidity files under path in sorted order. A
// single file path is accepted directly. Dependency and hidden
// directories are skipped.
func Collect(path string) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{abs}, nil
	}
	var files []string
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || (strings.HasPrefix(name, ".") && p != abs) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(p, ".sol") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Solidity sources under %s", abs)
	}
	sort.Strings(files)
	return files, nil
}

// LineOffsets returns the byte offset of each line start in content.
func LineOffsets(content string) []int {
	offsets := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// LineAt converts a byte position into a 1-based line number using the
// offsets table from LineOffsets.
func LineAt(offsets []int, pos int) int {
	lo, hi := 0, len(offsets)
	for lo < hi {
		mid := (lo + hi) / 2
		if offsets[mid] > pos {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}
