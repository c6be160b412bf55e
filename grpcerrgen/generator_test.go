package grpcerrgen_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/grpcerrgen/grpcerrgen"
	"github.com/donutnomad/grpcerrgen/plugin"
	"github.com/donutnomad/grpcerrgen/schema"
)

// generate 扫描目录、解析参数并执行生成器
func generate(t *testing.T, dir string) *plugin.GenerateResult {
	t.Helper()

	gen := grpcerrgen.NewGenerator()
	scanner := plugin.NewScanner(plugin.WithAnnotationFilter(gen.Annotations()...))

	absPath, err := filepath.Abs(dir)
	require.NoError(t, err)
	result, err := scanner.Scan(context.Background(), absPath)
	require.NoError(t, err)

	targets := result.All()
	parseParams(t, gen, targets)

	genResult, err := gen.Generate(&plugin.GenerateContext{
		Targets:        targets,
		PackageConfigs: result.PackageConfigs,
		Verbose:        testing.Verbose(),
	})
	require.NoError(t, err)
	return genResult
}

func parseParams(t *testing.T, gen *grpcerrgen.Generator, targets []*plugin.AnnotatedTarget) {
	t.Helper()

	for _, at := range targets {
		ann := plugin.GetAnnotation(at.Annotations, grpcerrgen.ErrorAnnotation)
		if ann == nil {
			continue
		}
		params := grpcerrgen.GrpcErrorParams{}
		if err := plugin.ParseAnnotationParams(ann, &params, gen.ParamDefs()); err != nil {
			t.Logf("解析参数失败 (可能预期): %v", err)
			continue
		}
		at.ParsedParams = params
	}
}

// onlyDefinition 返回唯一的输出文件及其内容
func onlyDefinition(t *testing.T, res *plugin.GenerateResult) (string, string) {
	t.Helper()
	require.Len(t, res.Definitions, 1)
	for path, def := range res.Definitions {
		return path, def.String()
	}
	return "", ""
}

func TestGenerateBasic(t *testing.T) {
	res := generate(t, "testdata/basic")
	require.Empty(t, res.Errors)

	path, code := onlyDefinition(t, res)
	assert.Equal(t, "errors_grpcerr.go", filepath.Base(path))

	// UserError: 默认函数名、默认日志、带 GRPCStatus 方法
	assert.Contains(t, code, "func UserErrorToStatus(e UserError)")
	assert.Contains(t, code, "case UserNotFound, *UserNotFound:")
	assert.Contains(t, code, "case Database, *Database:")
	assert.Contains(t, code, "case *Validation:")
	assert.Contains(t, code, "case Corrupted, *Corrupted:")
	assert.Contains(t, code, "LogInternal(e)")
	assert.Contains(t, code, "func (e *Validation) GRPCStatus()")
	assert.Contains(t, code, "func (e Database) GRPCStatus()")

	// OrderError: 自定义函数名、slog
	assert.Contains(t, code, "func OrderStatus(e OrderError)")
	assert.Contains(t, code, `slog.Error("internal server error", "error", e)`)
	assert.NotContains(t, code, "func (e OrderClosed) GRPCStatus()")

	// 按声明顺序输出
	assert.Less(t, strings.Index(code, "case UserNotFound, *UserNotFound:"), strings.Index(code, "case Database, *Database:"))
	assert.Less(t, strings.Index(code, "case *Validation:"), strings.Index(code, "case Corrupted, *Corrupted:"))
}

func TestGenerateSentinels(t *testing.T) {
	res := generate(t, "testdata/sentinel")
	require.Empty(t, res.Errors)

	_, code := onlyDefinition(t, res)
	assert.Contains(t, code, "func SentinelToStatus(err error)")
	assert.Contains(t, code, "ErrNotFound):")
	assert.Contains(t, code, "ErrForbidden):")
	assert.Contains(t, code, "ErrBroken):")
	assert.Less(t, strings.Index(code, "ErrNotFound)"), strings.Index(code, "ErrBroken)"))
}

func TestGenerateGeneric(t *testing.T) {
	res := generate(t, "testdata/generic")
	require.Empty(t, res.Errors)

	_, code := onlyDefinition(t, res)
	assert.Contains(t, code, "func ErrorToStatus[K comparable](e Error[K])")
	assert.Contains(t, code, "case *Missing[K]:")
	assert.Contains(t, code, "case Slow, *Slow:")
	assert.Contains(t, code, "zap.L().Error(")
}

func TestGenerateInvalid(t *testing.T) {
	res := generate(t, "testdata/invalid")

	// Plain 是结构体、Missing 状态码未知、Stray 不属于任何错误类型、ErrVar 是变量
	require.Len(t, res.Errors, 4, "%v", res.Errors)
	assert.Empty(t, res.Definitions)

	var (
		structural, unknown, orphan int
	)
	for _, err := range res.Errors {
		switch {
		case errors.Is(err, schema.ErrStructuralMismatch):
			structural++
		case errors.Is(err, schema.ErrUnknownCode):
			unknown++
			assert.Contains(t, err.Error(), "Missing")
		case errors.Is(err, grpcerrgen.ErrOrphanStatus):
			orphan++
			assert.Contains(t, err.Error(), "Stray")
		}
	}
	assert.Equal(t, 1, structural)
	assert.Equal(t, 1, unknown)
	assert.Equal(t, 1, orphan)
}

func TestGenerateOutputs(t *testing.T) {
	res := generate(t, "testdata/outputs")

	// CError 的函数名与 AError 的默认函数名冲突
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Error(), "AErrorToStatus")

	names := make([]string, 0, len(res.Definitions))
	for path := range res.Definitions {
		names = append(names, filepath.Base(path))
	}
	assert.ElementsMatch(t, []string{"status_gen.go", "b_status.go"}, names)
}

func TestGenerateEmpty(t *testing.T) {
	res, err := grpcerrgen.NewGenerator().Generate(&plugin.GenerateContext{})
	require.NoError(t, err)
	assert.Empty(t, res.Definitions)
	assert.Empty(t, res.Errors)
}

func TestRunWritesAndDiffs(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile("testdata/basic/errors.go")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "errors.go"), src, 0o644))

	registry := plugin.NewRegistry()
	registry.MustRegister(grpcerrgen.NewGenerator())

	var out bytes.Buffer
	stats, err := plugin.Run(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: []string{dir},
		Stdout:   &out,
	})
	require.NoError(t, err, out.String())
	assert.Equal(t, 1, stats.FileCount)

	generated, err := os.ReadFile(filepath.Join(dir, "errors_grpcerr.go"))
	require.NoError(t, err)
	assert.Contains(t, string(generated), plugin.GeneratedHeader)
	assert.Contains(t, string(generated), "func UserErrorToStatus(e UserError) *status.Status {")

	// 再次运行: 生成的文件被扫描器忽略，内容不变
	out.Reset()
	stats, err = plugin.Run(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: []string{dir},
		Diff:     true,
		Stdout:   &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FileCount)
	assert.Empty(t, out.String())
}

func TestHelpText(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.MustRegister(grpcerrgen.NewGenerator())

	help := plugin.FormatHelpText(registry)
	assert.Contains(t, help, "@GrpcError")
	assert.Contains(t, help, "@GrpcStatus")
	assert.Contains(t, help, "logger")
	assert.Contains(t, help, "methods")
}

func TestExampleIsUpToDate(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.MustRegister(grpcerrgen.NewGenerator())

	var out bytes.Buffer
	stats, err := plugin.Run(context.Background(), &plugin.RunOptions{
		Registry: registry,
		Patterns: []string{"../example"},
		Diff:     true,
		Stdout:   &out,
	})
	require.NoError(t, err, out.String())
	assert.Equal(t, 0, stats.FileCount, "example/errors_grpcerr.go 需要重新生成:\n%s", out.String())
}
