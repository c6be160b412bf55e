// Package sumparse 从 Go 源码中读取错误类型的结构描述。
//
// 错误类型是一个密封接口：接口中声明未导出的密封方法，同一个包内实现了
// 全部密封方法的具名类型就是它的变体。
package sumparse

import (
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/donutnomad/grpcerrgen/internal/pkgresolver"
	"github.com/donutnomad/grpcerrgen/plugin"
)

// StatusAnnotation 变体和哨兵变量上的注解名
const StatusAnnotation = "GrpcStatus"

// Package 一个已解析的包目录
type Package struct {
	Dir  string
	Name string

	fset  *token.FileSet
	files []*sourceFile

	types   map[string]*typeDecl
	order   []string // 类型声明顺序
	values  map[string]*valueDecl
	methods map[string][]methodDecl // 接收者类型名 -> 方法
}

type sourceFile struct {
	path    string
	ast     *ast.File
	imports map[string]string // 别名 -> 路径
}

type typeDecl struct {
	spec *ast.TypeSpec
	doc  *ast.CommentGroup
	file *sourceFile
}

type valueDecl struct {
	name *ast.Ident
	tok  token.Token
	doc  *ast.CommentGroup
	file *sourceFile
}

type methodDecl struct {
	name    string
	pointer bool
}

// Load 解析目录下参与构建的所有非测试文件
// 带有 "Code generated ... DO NOT EDIT." 头的文件被忽略
func Load(dir string, resolver *pkgresolver.Resolver) (*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录 %s 失败: %w", dir, err)
	}
	if resolver == nil {
		resolver = pkgresolver.New(dir)
	}

	p := &Package{
		Dir:     dir,
		fset:    token.NewFileSet(),
		types:   make(map[string]*typeDecl),
		values:  make(map[string]*valueDecl),
		methods: make(map[string][]methodDecl),
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, name); err != nil || !ok {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := parser.ParseFile(p.fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("解析文件失败: %w", err)
		}
		if ast.IsGenerated(f) {
			continue
		}
		if p.Name == "" {
			p.Name = f.Name.Name
		} else if f.Name.Name != p.Name {
			continue
		}

		sf := &sourceFile{path: path, ast: f, imports: fileImports(f, resolver)}
		p.files = append(p.files, sf)
		p.collect(sf)
	}

	if len(p.files) == 0 {
		return nil, fmt.Errorf("目录 %s 中没有找到 Go 源文件", dir)
	}
	return p, nil
}

// fileImports 返回文件的导入，未写别名时使用真实包名
func fileImports(f *ast.File, resolver *pkgresolver.Resolver) map[string]string {
	imports := make(map[string]string, len(f.Imports))
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		var alias string
		if imp.Name != nil {
			alias = imp.Name.Name
		} else {
			alias = resolver.PackageName(path)
		}
		if alias == "_" || alias == "." {
			continue
		}
		imports[alias] = path
	}
	return imports
}

// collect 收集文件中的类型、包级值和方法
func (p *Package) collect(sf *sourceFile) {
	for _, decl := range sf.ast.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				doc := specDoc(d, spec)
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if _, dup := p.types[s.Name.Name]; !dup {
						p.order = append(p.order, s.Name.Name)
					}
					p.types[s.Name.Name] = &typeDecl{spec: s, doc: doc, file: sf}
				case *ast.ValueSpec:
					for _, n := range s.Names {
						if n.Name != "_" {
							p.values[n.Name] = &valueDecl{name: n, tok: d.Tok, doc: doc, file: sf}
						}
					}
				}
			}
		case *ast.FuncDecl:
			if d.Recv == nil || len(d.Recv.List) == 0 {
				continue
			}
			recv, pointer := receiverBase(d.Recv.List[0].Type)
			if recv != "" {
				p.methods[recv] = append(p.methods[recv], methodDecl{name: d.Name.Name, pointer: pointer})
			}
		}
	}
}

// specDoc 分组声明使用 spec 自己的注释，非分组声明使用 decl 的注释
func specDoc(decl *ast.GenDecl, spec ast.Spec) *ast.CommentGroup {
	var doc *ast.CommentGroup
	switch s := spec.(type) {
	case *ast.TypeSpec:
		doc = s.Doc
	case *ast.ValueSpec:
		doc = s.Doc
	}
	if doc == nil && !decl.Lparen.IsValid() {
		doc = decl.Doc
	}
	return doc
}

// receiverBase 返回接收者的类型名以及是否为指针
//
//	T, *T, T[A], *T[A, B]
func receiverBase(expr ast.Expr) (string, bool) {
	pointer := false
	if star, ok := expr.(*ast.StarExpr); ok {
		pointer = true
		expr = star.X
	}
	switch x := expr.(type) {
	case *ast.IndexExpr:
		expr = x.X
	case *ast.IndexListExpr:
		expr = x.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name, pointer
	}
	return "", false
}

// idents 包级值标识符
func (p *Package) idents() map[string]bool {
	idents := make(map[string]bool, len(p.values))
	for name := range p.values {
		idents[name] = true
	}
	return idents
}

func (p *Package) position(pos token.Pos) token.Position {
	return p.fset.Position(pos)
}

// statusOf 读取 @GrpcStatus 注解
func statusOf(doc *ast.CommentGroup) (hasStatus bool, status string) {
	ann := plugin.GetAnnotation(plugin.ParseDocAnnotations(doc, StatusAnnotation), StatusAnnotation)
	if ann == nil {
		return false, ""
	}
	status, _ = ann.LookupParam("code")
	return true, status
}
