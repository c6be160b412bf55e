package plugin

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/donutnomad/gg"
	"github.com/donutnomad/grpcerrgen/internal/utils"
)

// GeneratedHeader 生成文件的文件头
const GeneratedHeader = "Code generated by grpcerrgen. DO NOT EDIT."

// RunOptions 运行选项
type RunOptions struct {
	Registry *Registry
	Patterns []string
	Verbose  bool
	Output   string    // 命令行指定的默认输出路径（最低优先级）
	Async    bool      // 是否并行执行生成器
	Diff     bool      // 只输出 diff，不写文件
	Stdout   io.Writer // 进度与 diff 输出，默认 os.Stdout
}

// RunStats 运行统计信息
type RunStats struct {
	ScanDuration     time.Duration // 扫描耗时
	GenerateDuration time.Duration // 生成耗时
	TotalDuration    time.Duration // 总耗时
	TargetCount      int           // 目标数量
	FileCount        int           // 写入（或 diff 模式下有变化）的文件数量
}

// ErrGenerate 生成过程中存在错误
var ErrGenerate = errors.New("生成失败")

// Run 运行代码生成
// 1. 扫描指定路径的注解
// 2. 将目标分发给对应的生成器，并解析注解参数
// 3. 执行生成器
// 4. 合并同一文件的 gg 定义，格式化后写入文件（或输出 diff）
func Run(ctx context.Context, opts *RunOptions) (*RunStats, error) {
	totalStart := time.Now()
	stats := &RunStats{}

	registry := opts.Registry
	if registry == nil {
		registry = globalRegistry
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	annotations := registry.Annotations()
	if len(annotations) == 0 {
		return nil, fmt.Errorf("没有已注册的生成器")
	}

	// 扫描
	scanStart := time.Now()
	scanner := NewScanner(
		WithAnnotationFilter(annotations...),
		WithScannerVerbose(opts.Verbose),
	)
	result, err := scanner.Scan(ctx, opts.Patterns...)
	if err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}
	stats.ScanDuration = time.Since(scanStart)
	stats.TargetCount = len(result.All())

	if stats.TargetCount == 0 {
		if opts.Verbose {
			fmt.Fprintln(out, "没有找到任何带注解的目标")
		}
		stats.TotalDuration = time.Since(totalStart)
		return stats, nil
	}
	if opts.Verbose {
		fmt.Fprintf(out, "找到 %d 个带注解的目标 (扫描耗时: %v)\n", stats.TargetCount, stats.ScanDuration)
	}

	generateStart := time.Now()
	dispatch := registry.DispatchTargets(result)

	// 按优先级排序生成器名称
	genNames := make([]string, 0, len(dispatch))
	for genName := range dispatch {
		genNames = append(genNames, genName)
	}
	slices.SortFunc(genNames, func(a, b string) int {
		genA, _ := registry.GetByName(a)
		genB, _ := registry.GetByName(b)
		if c := cmp.Compare(genA.Priority(), genB.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	// 先串行解析所有目标的参数（避免并发修改共享数据）
	var allErrors []error
	for _, genName := range genNames {
		gen, _ := registry.GetByName(genName)
		allErrors = append(allErrors, parseTargetParams(gen, dispatch[genName])...)
	}

	genResults := executeGenerators(registry, genNames, dispatch, result.PackageConfigs, opts, out)

	// 按优先级顺序收集 gg 定义，按输出路径分组
	fileDefinitions := make(map[string][]*gg.Generator)
	fileGenNames := make(map[string][]string)
	for _, genName := range genNames {
		item := genResults[genName]
		if item.err != nil {
			allErrors = append(allErrors, fmt.Errorf("生成器 %s 执行失败: %w", genName, item.err))
			continue
		}
		if item.result == nil {
			continue
		}
		for path, def := range item.result.Definitions {
			fileDefinitions[path] = append(fileDefinitions[path], def)
			fileGenNames[path] = append(fileGenNames[path], genName)
		}
		allErrors = append(allErrors, item.result.Errors...)
	}

	paths := make([]string, 0, len(fileDefinitions))
	for path := range fileDefinitions {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		merged, err := mergeDefinitions(fileDefinitions[path], fileGenNames[path])
		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("合并文件 %s 的定义失败: %w", path, err))
			continue
		}

		changed, err := emitFile(path, merged, opts.Diff, out)
		if err != nil {
			allErrors = append(allErrors, fmt.Errorf("写入文件 %s 失败: %w", path, err))
			continue
		}
		if changed {
			stats.FileCount++
			if !opts.Diff {
				fmt.Fprintf(out, "生成文件: %s\n", displayPath(path))
			}
		}
	}

	stats.GenerateDuration = time.Since(generateStart)
	stats.TotalDuration = time.Since(totalStart)

	if len(allErrors) > 0 {
		for _, e := range allErrors {
			fmt.Fprintf(out, "错误: %v\n", e)
		}
		return stats, fmt.Errorf("%w: 生成过程中出现 %d 个错误", ErrGenerate, len(allErrors))
	}

	return stats, nil
}

// parseTargetParams 将主注解参数解析到生成器的参数结构体
func parseTargetParams(gen Generator, targets []*AnnotatedTarget) []error {
	var errs []error
	paramDefs := gen.ParamDefs()

	for _, target := range targets {
		paramsProto := gen.NewParams()
		if paramsProto == nil {
			continue
		}

		// 只有主注解（第一个注解名）携带生成器参数
		ann := GetAnnotation(target.Annotations, gen.PrimaryAnnotation())
		if ann == nil {
			continue
		}

		if err := ParseAnnotationParams(ann, paramsProto, paramDefs); err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %s 解析参数失败: %w",
				target.Target.FilePath, target.Target.Line, target.Target.Name, err))
			continue
		}
		val := reflect.ValueOf(paramsProto)
		if val.Kind() != reflect.Ptr {
			errs = append(errs, fmt.Errorf("NewParams() 必须返回指针类型, 得到: %T", paramsProto))
			continue
		}
		target.ParsedParams = val.Elem().Interface()
	}

	return errs
}

// genResultItem 存储单个生成器的执行结果
type genResultItem struct {
	result *GenerateResult
	err    error
}

// executeGenerators 执行所有生成器，Async 时每个生成器一个 goroutine
func executeGenerators(registry *Registry, genNames []string, dispatch map[string][]*AnnotatedTarget,
	pkgConfigs map[string]*PackageConfig, opts *RunOptions, out io.Writer) map[string]genResultItem {

	execute := func(genName string) genResultItem {
		gen, _ := registry.GetByName(genName)
		targets := dispatch[genName]

		start := time.Now()
		res, err := gen.Generate(&GenerateContext{
			Targets:        targets,
			PackageConfigs: pkgConfigs,
			DefaultOutput:  opts.Output,
			Verbose:        opts.Verbose,
		})
		if opts.Verbose {
			fmt.Fprintf(out, "执行生成器: %s (%d 个目标, 耗时: %v)\n", genName, len(targets), time.Since(start))
		}
		return genResultItem{result: res, err: err}
	}

	results := make(map[string]genResultItem, len(genNames))
	if !opts.Async {
		for _, genName := range genNames {
			results[genName] = execute(genName)
		}
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, genName := range genNames {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := execute(genName)
			mu.Lock()
			results[genName] = item
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// mergeDefinitions 合并多个 gg.Generator 定义到一个文件
// 多个生成器输出到同一文件时，添加分隔注释
func mergeDefinitions(definitions []*gg.Generator, genNames []string) (*gg.Generator, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("没有定义需要合并")
	}

	var pkgName string
	for _, def := range definitions {
		if def.PackageName() == "" {
			continue
		}
		if pkgName != "" && pkgName != def.PackageName() {
			return nil, fmt.Errorf("包名不一致: %s vs %s", pkgName, def.PackageName())
		}
		pkgName = def.PackageName()
	}

	merged := gg.New()
	merged.SetHeader(GeneratedHeader)
	if pkgName != "" {
		merged.SetPackage(pkgName)
	}

	for i, def := range definitions {
		if len(definitions) > 1 {
			merged.Body().AddLine()
			merged.Body().AddString(fmt.Sprintf("// ================ %s ================", genNames[i]))
		}
		merged.Merge(def)
	}

	return merged, nil
}

// emitFile 写入文件或输出 diff，返回内容是否有变化
func emitFile(path string, gen *gg.Generator, diffOnly bool, out io.Writer) (bool, error) {
	if !diffOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return false, fmt.Errorf("创建目录失败: %w", err)
		}
		return utils.WriteFormat(path, gen.Bytes())
	}

	formatted, err := utils.FormatSource(path, gen.Bytes())
	if err != nil {
		return false, err
	}
	diff, err := utils.DiffFile(path, formatted)
	if err != nil {
		return false, err
	}
	if diff == "" {
		return false, nil
	}
	_, err = fmt.Fprint(out, diff)
	return true, err
}

// displayPath 尽量使用相对于当前目录的路径输出
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil {
		return rel
	}
	return path
}
