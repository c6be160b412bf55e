// Package schema 描述待生成转换函数的错误类型，并负责校验。
//
// internal/sumparse 从源码构建 RawType，Extract 把它校验为 ErrorType，
// emitter 只消费校验后的 ErrorType。
package schema

import (
	"go/token"
	"strings"

	"google.golang.org/grpc/codes"
)

// Kind 错误类型的结构分类
type Kind int

const (
	KindSum       Kind = iota + 1 // 密封接口
	KindProduct                   // 结构体
	KindOther                     // 其他具名类型
	KindSentinels                 // 包级哨兵错误变量集合
)

func (k Kind) String() string {
	switch k {
	case KindSum:
		return "sum"
	case KindProduct:
		return "struct"
	case KindOther:
		return "type"
	case KindSentinels:
		return "sentinels"
	default:
		return "unknown"
	}
}

// Shape 变体的字段形态
type Shape int

const (
	ShapeUnit  Shape = iota + 1 // 无字段: struct{}
	ShapeTuple                  // 位置字段: 全部为嵌入字段，或非结构体底层类型
	ShapeNamed                  // 具名字段
	ShapeValue                  // 哨兵变量
)

func (s Shape) String() string {
	switch s {
	case ShapeUnit:
		return "unit"
	case ShapeTuple:
		return "tuple"
	case ShapeNamed:
		return "named"
	case ShapeValue:
		return "value"
	default:
		return "unknown"
	}
}

// TypeParam 一组共享约束的类型参数，按源码原样保存
type TypeParam struct {
	Names      []string
	Constraint string
}

// RawType 源码中解析出的错误类型，未经校验
type RawType struct {
	Name        string
	PackageName string
	TypeParams  []TypeParam
	Kind        Kind
	Pos         token.Position

	HasErrorMethod bool     // 方法集中包含 Error() string
	SealMethods    []string // 未导出的密封方法

	Variants []RawVariant

	Imports map[string]string // 类型所在文件的导入: 别名 -> 路径
	Idents  map[string]bool   // 包级值标识符（var/const）
}

// RawVariant 源码中解析出的变体
type RawVariant struct {
	Name           string
	Shape          Shape
	Arity          int  // ShapeTuple 时的位置字段数量
	Pointer        bool // 密封方法使用指针接收者
	TypeParamCount int

	HasStatus bool   // 是否带有 @GrpcStatus
	Status    string // @GrpcStatus 的 code 参数，原样保存

	Pos     token.Position
	Imports map[string]string // 变体所在文件的导入: 别名 -> 路径
}

// ErrorType 校验后的错误类型，Extract 返回后不再修改
type ErrorType struct {
	Name        string
	PackageName string
	TypeParams  []TypeParam
	Kind        Kind
	Variants    []Variant
	Pos         token.Position
}

// TypeParamList 返回声明形式的类型参数列表，如 [T any, K comparable]
func (t *ErrorType) TypeParamList() string {
	if len(t.TypeParams) == 0 {
		return ""
	}
	parts := make([]string, 0, len(t.TypeParams))
	for _, tp := range t.TypeParams {
		parts = append(parts, strings.Join(tp.Names, ", ")+" "+tp.Constraint)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// TypeArgs 返回实例化形式的类型参数，如 [T, K]
func (t *ErrorType) TypeArgs() string {
	names := t.TypeParamNames()
	if len(names) == 0 {
		return ""
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// TypeParamNames 按声明顺序展开所有类型参数名
func (t *ErrorType) TypeParamNames() []string {
	var names []string
	for _, tp := range t.TypeParams {
		names = append(names, tp.Names...)
	}
	return names
}

// Qualified 返回实例化后的类型名，如 Error[T, K]
func (t *ErrorType) Qualified() string {
	return t.Name + t.TypeArgs()
}

// Variant 校验后的变体
type Variant struct {
	Name    string
	Shape   Shape
	Arity   int
	Pointer bool
	Generic bool        // 变体使用错误类型的类型参数
	Status  *StatusExpr // 未标注时为 nil
	Pos     token.Position
}

// StatusKind 状态码表达式的种类
type StatusKind int

const (
	StatusCanonical StatusKind = iota + 1 // codes.X 标准状态码
	StatusSymbol                          // 本包或导入包中的标识符，编译时解析
)

// StatusExpr 解析后的状态码表达式，不求值
type StatusExpr struct {
	Kind StatusKind

	Code codes.Code // 仅 StatusCanonical
	Name string     // 标准状态码名称或标识符名称

	PkgPath  string // 导入包中的标识符: 包路径
	PkgAlias string // 导入包中的标识符: 源码中的别名

	Raw string // 注解中的原始文本
}

// Internal 未标注变体使用的状态码
var Internal = StatusExpr{
	Kind: StatusCanonical,
	Code: codes.Internal,
	Name: "Internal",
	Raw:  "Internal",
}

// IsInternal 在生成时判断是否为 Internal
// 符号引用要到编译时才能确定，此时 known 为 false
func (s StatusExpr) IsInternal() (known, internal bool) {
	if s.Kind != StatusCanonical {
		return false, false
	}
	return true, s.Code == codes.Internal
}

// ResolveStatus 返回变体最终使用的状态码: 注解值，否则为 Internal
func ResolveStatus(v Variant) StatusExpr {
	if v.Status != nil {
		return *v.Status
	}
	return Internal
}
