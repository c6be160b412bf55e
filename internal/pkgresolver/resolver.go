// Package pkgresolver 把导入路径解析为真实的包名。
//
// 未写别名的导入在源码中以包名引用，包名不一定等于路径最后一段
// （gopkg.in/yaml.v3 -> yaml，github.com/x/go-codes -> codes）。
package pkgresolver

import (
	"fmt"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// Resolver 包名解析器，结果按导入路径缓存，可并发使用
type Resolver struct {
	moduleRoot string
	modulePath string

	cache sync.Map // 导入路径 -> 包名
}

// New 创建解析器，dir 为调用方所在目录，向上查找 go.mod
func New(dir string) *Resolver {
	r := &Resolver{}
	if root, err := FindModuleRoot(dir); err == nil {
		r.moduleRoot = root
		r.modulePath, _ = ModulePath(root)
	}
	return r
}

// ModulePath 当前模块路径，未找到 go.mod 时为空
func (r *Resolver) ModulePath() string {
	return r.modulePath
}

// PackageName 返回导入路径对应的包名
// 无法从磁盘读取时使用路径推断，不会返回空字符串
func (r *Resolver) PackageName(importPath string) string {
	if name, ok := r.cache.Load(importPath); ok {
		return name.(string)
	}

	name := ""
	if dir := r.diskPath(importPath); dir != "" {
		name, _ = ReadPackageName(dir)
	}
	if name == "" {
		name = GuessPackageName(importPath)
	}

	r.cache.Store(importPath, name)
	return name
}

// diskPath 返回导入路径在磁盘上的目录，找不到时返回空字符串
func (r *Resolver) diskPath(importPath string) string {
	if IsStdLib(importPath) {
		return existingDir(filepath.Join(build.Default.GOROOT, "src", importPath))
	}

	if r.modulePath != "" {
		if importPath == r.modulePath {
			return r.moduleRoot
		}
		if rel, ok := strings.CutPrefix(importPath, r.modulePath+"/"); ok {
			return existingDir(filepath.Join(r.moduleRoot, filepath.FromSlash(rel)))
		}
	}

	return findInModCache(importPath)
}

// IsStdLib 标准库路径的第一段不含 "."
func IsStdLib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return first != "" && !strings.Contains(first, ".")
}

var majorVersionRegex = regexp.MustCompile(`^v[0-9]+$`)

// GuessPackageName 按 go 工具链的惯例从路径推断包名
//
//	github.com/a/b/v2 -> b
//	gopkg.in/yaml.v3  -> yaml
//	github.com/a/go-x -> x
func GuessPackageName(importPath string) string {
	elems := strings.Split(importPath, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && majorVersionRegex.MatchString(name) {
		name = elems[len(elems)-2]
	}
	if strings.HasPrefix(importPath, "gopkg.in/") {
		name, _, _ = strings.Cut(name, ".")
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.TrimSuffix(name, "-go")
	return strings.NewReplacer("-", "", ".", "").Replace(name)
}

// ReadPackageName 读取目录中第一个非测试文件的 package 声明
func ReadPackageName(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("读取目录失败 %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(token.NewFileSet(), filepath.Join(dir, name), nil, parser.PackageClauseOnly)
		if err != nil {
			continue
		}
		return f.Name.Name, nil
	}

	return "", fmt.Errorf("目录 %s 中没有找到 Go 源文件", dir)
}

// FindModuleRoot 从 dir 向上查找包含 go.mod 的目录
func FindModuleRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("未找到 go.mod")
		}
		dir = parent
	}
}

// ModulePath 读取 root/go.mod 中的模块路径
func ModulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", err
	}
	modPath := modfile.ModulePath(data)
	if modPath == "" {
		return "", fmt.Errorf("未在 %s/go.mod 中找到模块名称", root)
	}
	return modPath, nil
}

// ImportPathOf 返回 dir 对应的导入路径
func ImportPathOf(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	root, err := FindModuleRoot(abs)
	if err != nil {
		return "", err
	}
	modPath, err := ModulePath(root)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return modPath, nil
	}
	return path.Join(modPath, filepath.ToSlash(rel)), nil
}

// findInModCache 在 GOMODCACHE 中查找第三方包
func findInModCache(importPath string) string {
	modCache := os.Getenv("GOMODCACHE")
	if modCache == "" {
		goPath := os.Getenv("GOPATH")
		if goPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return ""
			}
			goPath = filepath.Join(home, "go")
		}
		modCache = filepath.Join(goPath, "pkg", "mod")
	}

	// 从最长的前缀开始尝试作为模块路径，缓存目录中大写字母按 module.EscapePath 编码
	parts := strings.Split(importPath, "/")
	for i := len(parts); i >= 1; i-- {
		escaped, err := module.EscapePath(strings.Join(parts[:i], "/"))
		if err != nil {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(modCache, filepath.FromSlash(escaped)+"@*"))
		if err != nil || len(matches) == 0 {
			continue
		}
		// 字典序最后一个通常是最新版本
		dir := filepath.Join(append([]string{matches[len(matches)-1]}, parts[i:]...)...)
		if existingDir(dir) != "" {
			return dir
		}
	}
	return ""
}

func existingDir(dir string) string {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
