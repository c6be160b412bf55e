package utils

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/tools/imports"
)

// formatOptions 只做格式化，不增删 import（import 由 gg 统一管理）
var formatOptions = &imports.Options{
	Comments:   true,
	TabIndent:  true,
	TabWidth:   8,
	FormatOnly: true,
}

// FormatSource 格式化 Go 源码
func FormatSource(path string, src []byte) ([]byte, error) {
	out, err := imports.Process(path, src, formatOptions)
	if err != nil {
		return nil, fmt.Errorf("格式化 %s 失败: %w", path, err)
	}
	return out, nil
}

// WriteFormat 格式化后写入文件；内容未变化时不写，返回 false
func WriteFormat(path string, src []byte) (bool, error) {
	out, err := FormatSource(path, src)
	if err != nil {
		return false, err
	}
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, out) {
		return false, nil
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// CheckSyntax 检查文件语法
func CheckSyntax(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = imports.Process(path, content, &imports.Options{
		Fragment:   true,
		AllErrors:  true,
		Comments:   true,
		FormatOnly: true,
	})
	return err
}
