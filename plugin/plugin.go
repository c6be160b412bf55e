package plugin

import (
	"reflect"
	"slices"
)

// Generator 由 Registry 调度的代码生成器
//
// 主注解（Annotations 的第一个）携带生成器参数，其余为附属注解，只用于分发目标
type Generator interface {
	Name() string

	// Annotations 主注解在前，附属注解在后；一个注解只能绑定一个生成器
	Annotations() []string
	PrimaryAnnotation() string

	SupportedTargets() []TargetKind
	Supports(kind TargetKind) bool

	// ParamDefs 主注解的参数定义
	ParamDefs() []ParamDef

	// NewParams 返回参数结构体的新指针，nil 表示没有参数
	NewParams() any

	// Priority 数字小的先执行，输出合并时也排在前面
	Priority() int

	Generate(ctx *GenerateContext) (*GenerateResult, error)
}

// BaseOption 配置 BaseGenerator
type BaseOption func(*BaseGenerator)

// WithCompanions 附属注解
func WithCompanions(names ...string) BaseOption {
	return func(g *BaseGenerator) {
		g.annotations = append(g.annotations, names...)
	}
}

// WithTargets 支持的目标类型
func WithTargets(kinds ...TargetKind) BaseOption {
	return func(g *BaseGenerator) {
		g.targets = append(g.targets, kinds...)
	}
}

// WithParams 主注解的参数结构体，传零值，例如 GrpcErrorParams{}
func WithParams(proto any) BaseOption {
	return func(g *BaseGenerator) {
		typ := reflect.TypeOf(proto)
		if typ.Kind() == reflect.Ptr {
			typ = typ.Elem()
		}
		g.paramsType = typ
		g.paramDefs = ParseParamsFromStruct(proto)
	}
}

func WithPriority(priority int) BaseOption {
	return func(g *BaseGenerator) {
		g.priority = priority
	}
}

// BaseGenerator 实现 Generator 除 Generate 以外的方法，供嵌入
type BaseGenerator struct {
	name        string
	annotations []string
	targets     []TargetKind
	paramDefs   []ParamDef
	paramsType  reflect.Type
	priority    int
}

// NewBaseGenerator primary 为主注解
func NewBaseGenerator(name, primary string, opts ...BaseOption) *BaseGenerator {
	g := &BaseGenerator{
		name:        name,
		annotations: []string{primary},
		priority:    100,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *BaseGenerator) Name() string { return g.name }

func (g *BaseGenerator) Annotations() []string { return g.annotations }

// PrimaryAnnotation 携带参数的注解
func (g *BaseGenerator) PrimaryAnnotation() string { return g.annotations[0] }

func (g *BaseGenerator) SupportedTargets() []TargetKind { return g.targets }

// Supports 是否处理该类型的目标
func (g *BaseGenerator) Supports(kind TargetKind) bool {
	return slices.Contains(g.targets, kind)
}

func (g *BaseGenerator) ParamDefs() []ParamDef { return g.paramDefs }

func (g *BaseGenerator) NewParams() any {
	if g.paramsType == nil {
		return nil
	}
	return reflect.New(g.paramsType).Interface()
}

func (g *BaseGenerator) Priority() int { return g.priority }
