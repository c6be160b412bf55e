package utils

import (
	"os"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffFile 比较磁盘上的文件与新生成的内容，返回 unified diff
// 文件不存在时视为空文件；内容一致时返回空字符串
func DiffFile(path string, generated []byte) (string, error) {
	var current []byte
	if data, err := os.ReadFile(path); err == nil {
		current = data
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return UnifiedDiff(path, current, generated)
}

// UnifiedDiff 生成 a -> b 的 unified diff
func UnifiedDiff(path string, a, b []byte) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
}
