package plugin

import (
	"path/filepath"
	"strings"
)

// GetOutputPath 计算输出路径
// 优先级: 注解 output 参数 > 包级配置 > 命令行 -output > 生成器默认模式
func GetOutputPath(target *Target, ann *Annotation, defaultPattern string, pkgConfig *PackageConfig, pluginName string, cmdDefault string) string {
	if ann != nil {
		if output := ann.GetParam("output"); output != "" {
			return ExpandOutputPath(output, target)
		}
	}

	if output := pkgConfig.GetPluginOutput(pluginName); output != "" {
		return ExpandOutputPath(output, target)
	}

	if cmdDefault != "" {
		return ExpandOutputPath(cmdDefault, target)
	}

	return ExpandOutputPath(defaultPattern, target)
}

// ExpandOutputPath 展开输出路径中的变量
//
//	$FILE    源文件路径（不含 .go 后缀）
//	$PACKAGE 包名
//
// 相对路径以源文件所在目录为基准；缺少 .go 后缀时自动补齐
func ExpandOutputPath(pattern string, target *Target) string {
	dir := filepath.Dir(target.FilePath)
	name := strings.TrimSuffix(filepath.Base(target.FilePath), ".go")

	result := strings.ReplaceAll(pattern, "$FILE", name)
	result = strings.ReplaceAll(result, "$PACKAGE", target.PackageName)

	if !strings.HasSuffix(result, ".go") {
		result += ".go"
	}
	if !filepath.IsAbs(result) {
		result = filepath.Join(dir, result)
	}
	return filepath.Clean(result)
}
