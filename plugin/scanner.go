package plugin

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// Scanner 两阶段并行注解扫描器
// 第一阶段：快速文本匹配，找出可能包含注解的文件
// 第二阶段：对匹配的文件进行 AST 解析
type Scanner struct {
	workers int
	verbose bool

	// 注解过滤器（可选）
	annotationFilter []string
}

// ScannerOption 扫描器选项
type ScannerOption func(*Scanner)

func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithScannerVerbose(v bool) ScannerOption {
	return func(s *Scanner) {
		s.verbose = v
	}
}

func WithAnnotationFilter(annotations ...string) ScannerOption {
	return func(s *Scanner) {
		s.annotationFilter = annotations
	}
}

func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// quickMatchRegex 快速匹配注解的正则
var quickMatchRegex = regexp.MustCompile(`@(\w+)`)

// generatedHeaderRegex 匹配 Go 官方约定的生成文件头
var generatedHeaderRegex = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// fileResult 单个文件的解析结果
type fileResult struct {
	structs    []*AnnotatedTarget
	interfaces []*AnnotatedTarget
	types      []*AnnotatedTarget
	vars       []*AnnotatedTarget
	pkgConfig  *PackageConfig
	err        error
}

// Scan 扫描指定路径
// 支持: ./... ./pkg/... ./pkg /abs/path/... /abs/file.go
func (s *Scanner) Scan(ctx context.Context, patterns ...string) (*ScanResult, error) {
	allFiles, err := CollectFiles(patterns)
	if err != nil {
		return nil, err
	}
	if len(allFiles) == 0 {
		return &ScanResult{}, nil
	}

	// ========== 第一阶段：快速匹配 ==========
	matchedFiles := parallel(ctx, s.workers, allFiles, func(file string) (string, bool) {
		matched, err := s.QuickMatchFile(file)
		return file, err == nil && matched
	})
	if len(matchedFiles) == 0 {
		return &ScanResult{}, nil
	}
	if s.verbose {
		fmt.Printf("快速匹配: %d/%d 个文件可能包含注解\n", len(matchedFiles), len(allFiles))
	}

	// ========== 第二阶段：AST 解析 ==========
	results := parallel(ctx, s.workers, matchedFiles, func(file string) (*fileResult, bool) {
		return s.parseFile(file), true
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.mergeResults(results), nil
}

// parallel 使用固定数量的工作者并行处理输入，只保留 fn 返回 true 的结果
// 结果顺序与输入无关，调用方需要自行排序
func parallel[In, Out any](ctx context.Context, workers int, inputs []In, fn func(In) (Out, bool)) []Out {
	inCh := make(chan In)
	outCh := make(chan Out, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range inCh {
				if out, ok := fn(in); ok {
					outCh <- out
				}
			}
		}()
	}

	go func() {
		defer close(inCh)
		for _, in := range inputs {
			select {
			case <-ctx.Done():
				return
			case inCh <- in:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	var outs []Out
	for out := range outCh {
		outs = append(outs, out)
	}
	return outs
}

// QuickMatchFile 快速检查文件是否包含注解或 go:gogen 配置
// 生成的文件（带有 Code generated 头）直接跳过
func (s *Scanner) QuickMatchFile(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		trimmed := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(trimmed, "//") && !strings.HasPrefix(trimmed, "/*") {
			continue
		}
		if generatedHeaderRegex.MatchString(trimmed) {
			return false, nil
		}
		if strings.Contains(trimmed, "go:gogen:") {
			return true, nil
		}

		for _, match := range quickMatchRegex.FindAllStringSubmatch(trimmed, -1) {
			if len(s.annotationFilter) == 0 {
				return true, nil
			}
			for _, filter := range s.annotationFilter {
				if match[1] == filter {
					return true, nil
				}
			}
		}
	}

	return false, scanner.Err()
}

// mergeResults 合并各文件的解析结果
func (s *Scanner) mergeResults(results []*fileResult) *ScanResult {
	result := &ScanResult{
		PackageConfigs: make(map[string]*PackageConfig),
	}

	for _, r := range results {
		if r.err != nil {
			if s.verbose {
				fmt.Printf("警告: 解析失败: %v\n", r.err)
			}
			continue
		}
		result.Structs = append(result.Structs, r.structs...)
		result.Interfaces = append(result.Interfaces, r.interfaces...)
		result.Types = append(result.Types, r.types...)
		result.Vars = append(result.Vars, r.vars...)

		if r.pkgConfig == nil {
			continue
		}
		pkgDir := r.pkgConfig.PackageDir
		existing, ok := result.PackageConfigs[pkgDir]
		if !ok {
			result.PackageConfigs[pkgDir] = r.pkgConfig
			continue
		}
		if r.pkgConfig.DefaultOutput != "" {
			if existing.DefaultOutput != "" && existing.DefaultOutput != r.pkgConfig.DefaultOutput {
				fmt.Printf("警告: 包 %s 中存在多个不同的 go:gogen 默认输出配置，使用后发现的配置\n", pkgDir)
			}
			existing.DefaultOutput = r.pkgConfig.DefaultOutput
		}
		for k, v := range r.pkgConfig.PluginOutputs {
			if existingV, ok := existing.PluginOutputs[k]; ok && existingV != v {
				fmt.Printf("警告: 包 %s 中插件 %s 存在多个不同的输出配置，使用后发现的配置\n", pkgDir, k)
			}
			existing.PluginOutputs[k] = v
		}
	}

	sortTargets(result.Structs)
	sortTargets(result.Interfaces)
	sortTargets(result.Types)
	sortTargets(result.Vars)

	return result
}

// parseFile AST 解析单个文件
func (s *Scanner) parseFile(filePath string) *fileResult {
	result := &fileResult{}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		result.err = err
		return result
	}

	result.pkgConfig = parsePackageConfig(file, filePath)

	for _, decl := range file.Decls {
		genDecl, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		switch genDecl.Tok {
		case token.TYPE:
			s.parseTypeDecl(fset, filePath, file.Name.Name, genDecl, result)
		case token.VAR:
			s.parseVarDecl(fset, filePath, file.Name.Name, genDecl, result)
		}
	}

	return result
}

// specAnnotations 获取单个 spec 的注解
// 分组声明中只使用每个 spec 自己的注释；非分组声明使用 decl 上的注释
func (s *Scanner) specAnnotations(decl *ast.GenDecl, specDoc *ast.CommentGroup) []*Annotation {
	doc := specDoc
	if doc == nil && !decl.Lparen.IsValid() {
		doc = decl.Doc
	}
	return ParseDocAnnotations(doc, s.annotationFilter...)
}

// parseTypeDecl 解析类型声明
func (s *Scanner) parseTypeDecl(fset *token.FileSet, filePath, packageName string, decl *ast.GenDecl, result *fileResult) {
	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}

		annotations := s.specAnnotations(decl, typeSpec.Doc)
		if len(annotations) == 0 {
			continue
		}

		target := &Target{
			Name:        typeSpec.Name.Name,
			PackageName: packageName,
			FilePath:    filePath,
			Line:        fset.Position(typeSpec.Pos()).Line,
			Node:        typeSpec,
		}
		at := &AnnotatedTarget{Target: target, Annotations: annotations}

		switch typeSpec.Type.(type) {
		case *ast.StructType:
			target.Kind = TargetStruct
			result.structs = append(result.structs, at)
		case *ast.InterfaceType:
			target.Kind = TargetInterface
			result.interfaces = append(result.interfaces, at)
		default:
			target.Kind = TargetType
			result.types = append(result.types, at)
		}
	}
}

// parseVarDecl 解析 var 声明
func (s *Scanner) parseVarDecl(fset *token.FileSet, filePath, packageName string, decl *ast.GenDecl, result *fileResult) {
	for _, spec := range decl.Specs {
		valueSpec, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}

		annotations := s.specAnnotations(decl, valueSpec.Doc)
		if len(annotations) == 0 {
			continue
		}

		for _, name := range valueSpec.Names {
			if name.Name == "_" {
				continue
			}
			result.vars = append(result.vars, &AnnotatedTarget{
				Target: &Target{
					Kind:        TargetVar,
					Name:        name.Name,
					PackageName: packageName,
					FilePath:    filePath,
					Line:        fset.Position(name.Pos()).Line,
					Node:        valueSpec,
				},
				Annotations: annotations,
			})
		}
	}
}

// CollectFiles 收集所有需要扫描的文件
// 跳过隐藏目录、vendor、testdata、测试文件以及本工具生成的文件
func CollectFiles(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		recursive := strings.HasSuffix(pattern, "/...")
		pattern = strings.TrimSuffix(pattern, "/...")

		absPath, err := filepath.Abs(pattern)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if strings.HasSuffix(absPath, ".go") {
				add(absPath)
			}
			continue
		}

		err = filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if path == absPath {
					return nil
				}
				name := info.Name()
				if !recursive || strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata" {
					return filepath.SkipDir
				}
				return nil
			}
			if IsSourceFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

// IsSourceFile 判断文件是否需要参与扫描
func IsSourceFile(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".go") &&
		!strings.HasSuffix(base, "_test.go") &&
		!strings.HasSuffix(base, GeneratedSuffix)
}

// GeneratedSuffix 本工具默认生成文件的后缀
const GeneratedSuffix = "_grpcerr.go"

// goGenRegex 匹配 go:gogen: 指令
// 支持两种格式：//go:gogen: 和 // go:gogen:
var goGenRegex = regexp.MustCompile(`go:gogen:\s*(.*)`)

// parsePackageConfig 解析包级 go:gogen: 配置
// 支持格式:
//
//	//go:gogen: -output `$FILE_status`
//	// go:gogen: plugin:grpcerr -output `errors_status`
func parsePackageConfig(file *ast.File, filePath string) *PackageConfig {
	var gogenLines []string

	for _, cg := range file.Comments {
		for _, c := range cg.List {
			text := strings.TrimPrefix(c.Text, "//")
			text = strings.TrimPrefix(text, "/*")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimSpace(text)

			if matches := goGenRegex.FindStringSubmatch(text); len(matches) > 1 {
				gogenLines = append(gogenLines, matches[1])
			}
		}
	}

	switch len(gogenLines) {
	case 0:
		return nil
	case 1:
		return parseGogenLine(gogenLines[0], filePath)
	default:
		fmt.Printf("警告: 文件 %s 定义了多个 go:gogen: 指令，将被忽略\n", filePath)
		return nil
	}
}

// parseGogenLine 解析单行 go:gogen: 配置
// 格式:
//
//	-output `xxx`                                  // 默认输出
//	plugin:grpcerr -output `xxx`                   // 插件特定输出
func parseGogenLine(line string, filePath string) *PackageConfig {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	config := &PackageConfig{
		PackageDir:    packageDirOf(filePath),
		PluginOutputs: make(map[string]string),
	}

	parts := splitGogenArgs(line)

	var currentPlugin string
	for i := 0; i < len(parts); i++ {
		part := parts[i]
		switch {
		case strings.HasPrefix(part, "plugin:"):
			currentPlugin = strings.ToLower(strings.TrimPrefix(part, "plugin:"))
		case part == "-output" && i+1 < len(parts):
			i++
			output := trimQuotes(parts[i])
			if currentPlugin == "" {
				config.DefaultOutput = output
			} else {
				config.PluginOutputs[currentPlugin] = output
			}
		}
	}

	if config.DefaultOutput == "" && len(config.PluginOutputs) == 0 {
		return nil
	}
	return config
}

// splitGogenArgs 分割 go:gogen 参数，支持引号内的空格
func splitGogenArgs(line string) []string {
	var parts []string
	var current strings.Builder
	var quoteChar byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quoteChar == 0 && (c == '`' || c == '"' || c == '\''):
			quoteChar = c
			current.WriteByte(c)
		case quoteChar != 0 && c == quoteChar:
			quoteChar = 0
			current.WriteByte(c)
		case quoteChar == 0 && c == ' ':
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// trimQuotes 去除引号
func trimQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '`' || first == '"' || first == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// packageDirOf 返回文件所在的包目录（绝对路径）
func packageDirOf(filePath string) string {
	dir := filepath.Dir(filePath)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// sortTargets 按文件路径、行号排序，保证并行扫描的结果稳定
func sortTargets(targets []*AnnotatedTarget) {
	slices.SortFunc(targets, func(a, b *AnnotatedTarget) int {
		if c := cmp.Compare(a.Target.FilePath, b.Target.FilePath); c != 0 {
			return c
		}
		return cmp.Compare(a.Target.Line, b.Target.Line)
	})
}
