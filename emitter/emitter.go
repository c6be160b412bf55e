package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/donutnomad/gg"

	"github.com/donutnomad/grpcerrgen/schema"
)

const (
	statusPath = "google.golang.org/grpc/status"
	slogPath   = "log/slog"
	zapPath    = "go.uber.org/zap"

	// DefaultRuntimePath 运行时辅助包
	DefaultRuntimePath = "github.com/donutnomad/grpcerrgen/grpcerr"

	// InternalMessage 返回给调用方的 Internal 错误信息，与 grpcerr.InternalMessage 一致
	InternalMessage = "Internal server error."

	// SentinelFunc 哨兵变量转换函数的默认名称
	SentinelFunc = "SentinelToStatus"
)

// Logger Internal 错误的日志方式
type Logger string

const (
	LoggerRuntime Logger = "grpcerr" // grpcerr.LogInternal，可通过 grpcerr.SetLogger 替换
	LoggerSlog    Logger = "slog"
	LoggerZap     Logger = "zap"
)

// Options 生成选项
type Options struct {
	Func        string // 函数名，为空时使用 FuncName
	Logger      Logger // 为空时使用 LoggerRuntime
	Methods     bool   // 为每个变体生成 GRPCStatus 方法
	RuntimePath string // grpcerr 包路径，为空时使用 DefaultRuntimePath
}

// FuncName 默认函数名: <Name>ToStatus，哨兵为 SentinelToStatus
func FuncName(t *schema.ErrorType) string {
	if t.Kind == schema.KindSentinels || t.Name == "" {
		return SentinelFunc
	}
	return t.Name + "ToStatus"
}

// Emit 把转换函数写入 gen
// t 必须是 schema.Extract 返回的结果
func Emit(gen *gg.Generator, t *schema.ErrorType, opts Options) {
	e := newEmitter(gen, t, opts)
	e.emitFunc()
	if opts.Methods && t.Kind == schema.KindSum {
		e.emitMethods()
	}
}

type emitter struct {
	gen  *gg.Generator
	body *gg.Group
	t    *schema.ErrorType
	opts Options
	arms []ResolvedArm

	codes  *gg.PackageRef
	status *gg.PackageRef
}

func newEmitter(gen *gg.Generator, t *schema.ErrorType, opts Options) *emitter {
	if opts.Func == "" {
		opts.Func = FuncName(t)
	}
	if opts.Logger == "" {
		opts.Logger = LoggerRuntime
	}
	if opts.RuntimePath == "" {
		opts.RuntimePath = DefaultRuntimePath
	}
	return &emitter{
		gen:    gen,
		body:   gen.Body(),
		t:      t,
		opts:   opts,
		arms:   ResolveArms(t),
		codes:  gen.P(schema.CodesPath),
		status: gen.P(statusPath),
	}
}

func (e *emitter) line(format string, args ...any) {
	e.body.AddString(fmt.Sprintf(format, args...))
}

// emitFunc 生成转换函数
func (e *emitter) emitFunc() {
	sentinels := e.t.Kind == schema.KindSentinels
	param, paramType := "e", e.t.Qualified()
	if sentinels {
		param, paramType = "err", "error"
	}

	e.body.AddLine()
	e.emitDoc()
	e.line("func %s%s(%s %s) %s {", e.opts.Func, e.t.TypeParamList(), param, paramType, e.statusType())
	e.line("\tif %s == nil {", param)
	e.line("\t\treturn nil")
	e.line("\t}")

	if len(e.arms) > 0 {
		if sentinels {
			e.line("\tswitch {")
		} else {
			e.line("\tswitch %s.(type) {", param)
		}
		for _, arm := range e.arms {
			if sentinels {
				e.line("\tcase %s(%s, %s):", e.gen.P("errors").Dot("Is"), param, arm.Pattern)
			} else {
				e.line("\tcase %s:", arm.Pattern)
			}
			e.emitBranch("\t\t", param, arm.Status)
		}
		e.line("\t}")
	}

	e.emitInternal("\t", param, fmt.Sprint(e.codes.Dot("Internal")))
	e.line("}")
}

// emitDoc 函数注释，列出每个变体的状态码
func (e *emitter) emitDoc() {
	subject := e.t.Name
	if e.t.Kind == schema.KindSentinels {
		subject = "the package sentinel errors"
	}
	e.line("// %s converts %s to a gRPC status.", e.opts.Func, subject)
	e.line("// Internal errors are logged and reported with a generic message.")
	if len(e.arms) == 0 {
		return
	}
	e.line("//")

	width := 0
	for _, arm := range e.arms {
		width = max(width, len(arm.Display))
	}
	for _, arm := range e.arms {
		e.line("//\t%-*s -> %s", width, arm.Display, arm.Status.Raw)
	}
}

// emitBranch 单个分支的函数体
func (e *emitter) emitBranch(indent, param string, st schema.StatusExpr) {
	e.line("%scode := %s", indent, e.statusValue(st))
	e.line("%sif code == %s {", indent, e.codes.Dot("Internal"))
	e.emitInternal(indent+"\t", param, "code")
	e.line("%s}", indent)
	e.line("%sreturn %s(code, %s.Error())", indent, e.status.Dot("New"), param)
}

// emitInternal 记录日志并返回脱敏后的 status
func (e *emitter) emitInternal(indent, param, code string) {
	var logCall, message string
	switch e.opts.Logger {
	case LoggerSlog:
		logCall = fmt.Sprintf("%s(%q, %q, %s)", e.gen.P(slogPath).Dot("Error"), "internal server error", "error", param)
		message = strconv.Quote(InternalMessage)
	case LoggerZap:
		zapP := e.gen.P(zapPath)
		logCall = fmt.Sprintf("%s().Error(%q, %s(%s))", zapP.Dot("L"), "internal server error", zapP.Dot("Error"), param)
		message = strconv.Quote(InternalMessage)
	default:
		runtime := e.gen.P(e.opts.RuntimePath)
		logCall = fmt.Sprintf("%s(%s)", runtime.Dot("LogInternal"), param)
		message = fmt.Sprint(runtime.Dot("InternalMessage"))
	}
	e.line("%s%s", indent, logCall)
	e.line("%sreturn %s(%s, %s)", indent, e.status.Dot("New"), code, message)
}

// statusValue 状态码表达式在生成代码中的写法
// 导入包中的标识符沿用源码中的别名
func (e *emitter) statusValue(st schema.StatusExpr) string {
	switch {
	case st.Kind == schema.StatusCanonical:
		return fmt.Sprint(e.codes.Dot(st.Name))
	case st.PkgPath != "":
		e.gen.PAlias(st.PkgPath, st.PkgAlias)
		return st.PkgAlias + "." + st.Name
	default:
		return st.Name
	}
}

func (e *emitter) statusType() string {
	return "*" + fmt.Sprint(e.status.Type("Status"))
}

// emitMethods 为每个变体生成 GRPCStatus 方法，status.FromError 会优先使用它
func (e *emitter) emitMethods() {
	for _, arm := range e.arms {
		e.body.AddLine()
		e.line("// GRPCStatus implements the interface used by status.FromError.")
		e.line("// Internal details stay hidden only while e is returned unwrapped;")
		e.line("// wrapped errors should go through grpcerr.ToStatus or its interceptors.")
		e.line("func (e %s) GRPCStatus() %s {", e.receiver(arm.Variant), e.statusType())
		e.emitBranch("\t", "e", arm.Status)
		e.line("}")
	}
}

// receiver 方法接收者类型，泛型变体按位置使用错误类型的类型参数名
func (e *emitter) receiver(v schema.Variant) string {
	var b strings.Builder
	if v.Pointer {
		b.WriteString("*")
	}
	b.WriteString(v.Name)
	if v.Generic {
		b.WriteString(e.t.TypeArgs())
	}
	return b.String()
}
