// Package emitter 根据校验后的 schema.ErrorType 生成错误到 gRPC status 的转换函数。
package emitter

import (
	"fmt"
	"strings"

	"github.com/donutnomad/grpcerrgen/schema"
)

// Classification 生成时对状态码是否为 Internal 的判断
// 生成的代码总是在运行时比较，这里只用于诊断输出和测试
type Classification int

const (
	InternalNo       Classification = iota + 1 // 标准状态码，且不是 Internal
	InternalYes                                // codes.Internal
	InternalDeferred                           // 符号引用，编译后才能确定
)

func (c Classification) String() string {
	switch c {
	case InternalNo:
		return "no"
	case InternalYes:
		return "yes"
	case InternalDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// ResolvedArm 一个变体对应的 switch 分支
type ResolvedArm struct {
	Variant  schema.Variant
	Pattern  string // case 表达式: *NotFound[T] / Database, *Database / ErrNotFound
	Display  string // 形态描述: NotFound / Timeout(_) / Validation{..}
	Status   schema.StatusExpr
	Internal Classification
	Default  bool // 状态码来自默认值
}

// ResolveArms 按声明顺序为每个变体生成一个分支
func ResolveArms(t *schema.ErrorType) []ResolvedArm {
	arms := make([]ResolvedArm, 0, len(t.Variants))
	for _, v := range t.Variants {
		st := schema.ResolveStatus(v)
		arms = append(arms, ResolvedArm{
			Variant:  v,
			Pattern:  Pattern(t, v),
			Display:  Display(v),
			Status:   st,
			Internal: classify(st),
			Default:  v.Status == nil,
		})
	}
	return arms
}

func classify(st schema.StatusExpr) Classification {
	known, internal := st.IsInternal()
	switch {
	case !known:
		return InternalDeferred
	case internal:
		return InternalYes
	default:
		return InternalNo
	}
}

// Pattern 变体在类型 switch 中的 case 表达式
// 泛型变体按位置使用错误类型的类型参数名
// 值接收者的变体，其指针类型同样实现了接口，两者共用一个分支
func Pattern(t *schema.ErrorType, v schema.Variant) string {
	if v.Shape == schema.ShapeValue {
		return v.Name
	}
	p := v.Name
	if v.Generic {
		p += t.TypeArgs()
	}
	if v.Pointer {
		return "*" + p
	}
	return p + ", *" + p
}

// Display 变体的形态描述，字段一律用通配符表示
func Display(v schema.Variant) string {
	switch v.Shape {
	case schema.ShapeTuple:
		return fmt.Sprintf("%s(%s)", v.Name, strings.TrimSuffix(strings.Repeat("_, ", v.Arity), ", "))
	case schema.ShapeNamed:
		return v.Name + "{..}"
	default:
		return v.Name
	}
}
