// Package grpcerrgen 为带 @GrpcError 注解的密封接口生成 gRPC status 转换函数。
package grpcerrgen

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/donutnomad/gg"
	"github.com/samber/lo"

	"github.com/donutnomad/grpcerrgen/emitter"
	"github.com/donutnomad/grpcerrgen/internal/pkgresolver"
	"github.com/donutnomad/grpcerrgen/internal/sumparse"
	"github.com/donutnomad/grpcerrgen/plugin"
	"github.com/donutnomad/grpcerrgen/schema"
)

const (
	generatorName = "grpcerr"

	ErrorAnnotation  = "GrpcError"
	StatusAnnotation = sumparse.StatusAnnotation

	// DefaultOutput 默认输出到源文件旁的 <文件名>_grpcerr.go
	DefaultOutput = "$FILE_grpcerr.go"
)

// GrpcErrorParams 定义 GrpcError 注解支持的参数
type GrpcErrorParams struct {
	Func    string `param:"name=func,required=false,default=,description=生成的函数名（默认 <类型名>ToStatus）" validate:"omitempty,goident"`
	Logger  string `param:"name=logger,required=false,default=grpcerr,description=Internal 错误的日志方式: grpcerr/slog/zap" validate:"oneof=grpcerr slog zap"`
	Methods bool   `param:"name=methods,required=false,default=false,description=为每个变体生成 GRPCStatus 方法；错误被包装后需经过 grpcerr 拦截器才会脱敏"`
}

// ErrOrphanStatus @GrpcStatus 标注的类型不属于任何错误类型
var ErrOrphanStatus = errors.New("@GrpcStatus 标注的类型不是任何 @GrpcError 类型的变体")

// Generator 实现 plugin.Generator 接口
type Generator struct {
	plugin.BaseGenerator
}

func NewGenerator() *Generator {
	return &Generator{
		BaseGenerator: *plugin.NewBaseGenerator(generatorName, ErrorAnnotation,
			plugin.WithCompanions(StatusAnnotation),
			plugin.WithTargets(plugin.TargetInterface, plugin.TargetStruct, plugin.TargetType, plugin.TargetVar),
			plugin.WithParams(GrpcErrorParams{}),
			plugin.WithPriority(10),
		),
	}
}

// Generate 执行代码生成
// 目标按包目录分组，每个目录只解析一次
func (g *Generator) Generate(ctx *plugin.GenerateContext) (*plugin.GenerateResult, error) {
	result := plugin.NewGenerateResult()
	if len(ctx.Targets) == 0 {
		return result, nil
	}

	byDir := lo.GroupBy(ctx.Targets, func(at *plugin.AnnotatedTarget) string {
		return filepath.Dir(at.Target.FilePath)
	})
	dirs := lo.Keys(byDir)
	slices.Sort(dirs)

	outputs := newOutputSet()
	for _, dir := range dirs {
		g.generatePackage(ctx, dir, byDir[dir], outputs, result)
	}

	for _, path := range outputs.order {
		result.AddDefinition(path, outputs.gens[path])
		if ctx.Verbose {
			fmt.Printf("[grpcerr] 生成定义 %s\n", path)
		}
	}
	return result, nil
}

// outputSet 同一输出路径的所有函数写入同一个 gg.Generator
type outputSet struct {
	gens  map[string]*gg.Generator
	order []string
}

func newOutputSet() *outputSet {
	return &outputSet{gens: make(map[string]*gg.Generator)}
}

func (s *outputSet) get(path, pkgName string) *gg.Generator {
	if gen, ok := s.gens[path]; ok {
		return gen
	}
	gen := gg.New()
	gen.SetPackage(pkgName)
	s.gens[path] = gen
	s.order = append(s.order, path)
	return gen
}

// generatePackage 处理同一包目录下的所有目标
func (g *Generator) generatePackage(ctx *plugin.GenerateContext, dir string, targets []*plugin.AnnotatedTarget,
	outputs *outputSet, result *plugin.GenerateResult) {

	pkg, err := sumparse.Load(dir, pkgresolver.New(dir))
	if err != nil {
		result.AddError(err)
		return
	}
	pkgConfig := ctx.GetPackageConfig(targets[0].Target.FilePath)

	claimed := make(map[string]bool) // 属于某个错误类型的变体
	funcs := make(map[string]string) // 函数名 -> 类型名
	var statusTargets []*plugin.AnnotatedTarget

	for _, at := range targets {
		ann := plugin.GetAnnotation(at.Annotations, ErrorAnnotation)
		if ann == nil {
			statusTargets = append(statusTargets, at)
			continue
		}
		if at.Target.Kind == plugin.TargetVar {
			result.AddError(fmt.Errorf("%s: @%s 只能用于类型, %s 是变量", targetPos(at.Target), ErrorAnnotation, at.Target.Name))
			continue
		}

		params, err := targetParams(at)
		if err != nil {
			result.AddError(err)
			continue
		}

		raw, err := pkg.ErrorType(at.Target.Name)
		if err != nil {
			result.AddError(err)
			continue
		}
		claimed[raw.Name] = true
		for _, v := range raw.Variants {
			claimed[v.Name] = true
		}

		et, err := schema.Extract(raw)
		if err != nil {
			result.AddError(fmt.Errorf("%s: %s: %w", targetPos(at.Target), at.Target.Name, err))
			continue
		}

		opts := emitter.Options{
			Func:    params.Func,
			Logger:  emitter.Logger(params.Logger),
			Methods: params.Methods,
		}
		fn := lo.Ternary(opts.Func != "", opts.Func, emitter.FuncName(et))
		if prev, dup := funcs[fn]; dup {
			result.AddError(fmt.Errorf("%s: 函数名 %s 已被 %s 使用", targetPos(at.Target), fn, prev))
			continue
		}
		funcs[fn] = et.Name

		outputPath := plugin.GetOutputPath(at.Target, ann, DefaultOutput, pkgConfig, g.Name(), ctx.DefaultOutput)
		emitter.Emit(outputs.get(outputPath, et.PackageName), et, opts)

		if ctx.Verbose {
			fmt.Printf("[grpcerr] 处理 %s %s (%d 个变体) -> %s\n", at.Target.Kind, et.Name, len(et.Variants), outputPath)
			fmt.Printf("[grpcerr] %s", spew.Sdump(emitter.ResolveArms(et)))
		}
	}

	var sentinels []*plugin.AnnotatedTarget
	for _, at := range statusTargets {
		switch {
		case at.Target.Kind == plugin.TargetVar:
			sentinels = append(sentinels, at)
		case !claimed[at.Target.Name]:
			result.AddError(fmt.Errorf("%s: %s: %w", targetPos(at.Target), at.Target.Name, ErrOrphanStatus))
		}
	}
	if len(sentinels) == 0 {
		return
	}

	if prev, dup := funcs[emitter.SentinelFunc]; dup {
		result.AddError(fmt.Errorf("%s: 函数名 %s 已被 %s 使用", targetPos(sentinels[0].Target), emitter.SentinelFunc, prev))
		return
	}
	g.generateSentinels(ctx, pkg, sentinels, pkgConfig, outputs, result)
}

// generateSentinels 同一个包的哨兵变量合并为一个函数，输出到第一个变量的输出路径
func (g *Generator) generateSentinels(ctx *plugin.GenerateContext, pkg *sumparse.Package, sentinels []*plugin.AnnotatedTarget,
	pkgConfig *plugin.PackageConfig, outputs *outputSet, result *plugin.GenerateResult) {

	names := lo.Map(sentinels, func(at *plugin.AnnotatedTarget, _ int) string { return at.Target.Name })
	raw, err := pkg.Sentinels(names)
	if err != nil {
		result.AddError(err)
		return
	}
	et, err := schema.Extract(raw)
	if err != nil {
		result.AddError(fmt.Errorf("%s: 哨兵错误: %w", pkg.Dir, err))
		return
	}

	first := sentinels[0]
	ann := plugin.GetAnnotation(first.Annotations, StatusAnnotation)
	outputPath := plugin.GetOutputPath(first.Target, ann, DefaultOutput, pkgConfig, g.Name(), ctx.DefaultOutput)
	emitter.Emit(outputs.get(outputPath, et.PackageName), et, emitter.Options{})

	if ctx.Verbose {
		fmt.Printf("[grpcerr] 处理 %d 个哨兵错误 %v -> %s\n", len(names), names, outputPath)
	}
}

// targetParams 返回解析好的注解参数
func targetParams(at *plugin.AnnotatedTarget) (GrpcErrorParams, error) {
	if at.ParsedParams == nil {
		return GrpcErrorParams{Logger: string(emitter.LoggerRuntime)}, nil
	}
	params, ok := at.ParsedParams.(GrpcErrorParams)
	if !ok {
		return params, fmt.Errorf("ParsedParams 类型断言失败: %T", at.ParsedParams)
	}
	return params, nil
}

func targetPos(t *plugin.Target) string {
	return fmt.Sprintf("%s:%d", t.FilePath, t.Line)
}
