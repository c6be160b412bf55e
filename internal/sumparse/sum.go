package sumparse

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/samber/lo"

	"github.com/donutnomad/grpcerrgen/schema"
)

// ErrorType 读取名为 name 的错误类型及其变体
// 非接口类型同样返回 RawType（Kind 为 KindProduct/KindOther），由 schema.Extract 拒绝
func (p *Package) ErrorType(name string) (*schema.RawType, error) {
	td, ok := p.types[name]
	if !ok {
		return nil, fmt.Errorf("未在包 %s 中找到类型 %s", p.Dir, name)
	}

	raw := &schema.RawType{
		Name:        name,
		PackageName: p.Name,
		TypeParams:  typeParams(td.spec),
		Pos:         p.position(td.spec.Name.Pos()),
		Imports:     td.file.imports,
		Idents:      p.idents(),
	}

	iface, ok := td.spec.Type.(*ast.InterfaceType)
	switch {
	case td.spec.Assign.IsValid():
		raw.Kind = schema.KindOther
		return raw, nil
	case ok:
		raw.Kind = schema.KindSum
	default:
		if _, isStruct := td.spec.Type.(*ast.StructType); isStruct {
			raw.Kind = schema.KindProduct
		} else {
			raw.Kind = schema.KindOther
		}
		return raw, nil
	}

	ms := &methodSet{}
	p.interfaceMethods(iface, ms, map[string]bool{name: true})
	raw.HasErrorMethod = ms.hasError
	raw.SealMethods = ms.seals
	if len(ms.seals) == 0 {
		return raw, nil
	}

	for _, typeName := range p.order {
		if typeName == name {
			continue
		}
		vd := p.types[typeName]
		if vd.spec.Assign.IsValid() {
			continue
		}
		pointer, ok := p.implements(typeName, ms.seals)
		if !ok {
			continue
		}
		raw.Variants = append(raw.Variants, p.variant(vd, pointer))
	}

	return raw, nil
}

// Sentinels 按给定顺序读取包级哨兵错误变量
func (p *Package) Sentinels(names []string) (*schema.RawType, error) {
	raw := &schema.RawType{
		PackageName: p.Name,
		Kind:        schema.KindSentinels,
		Idents:      p.idents(),
	}

	for i, name := range names {
		vd, ok := p.values[name]
		if !ok {
			return nil, fmt.Errorf("未在包 %s 中找到变量 %s", p.Dir, name)
		}
		if vd.tok != token.VAR {
			return nil, fmt.Errorf("%s: %s 不是变量", p.position(vd.name.Pos()), name)
		}
		if i == 0 {
			raw.Pos = p.position(vd.name.Pos())
			raw.Imports = vd.file.imports
		}

		hasStatus, status := statusOf(vd.doc)
		raw.Variants = append(raw.Variants, schema.RawVariant{
			Name:      name,
			Shape:     schema.ShapeValue,
			HasStatus: hasStatus,
			Status:    status,
			Pos:       p.position(vd.name.Pos()),
			Imports:   vd.file.imports,
		})
	}

	return raw, nil
}

// variant 构建单个变体的描述
func (p *Package) variant(td *typeDecl, pointer bool) schema.RawVariant {
	shape, arity := fieldShape(td.spec.Type)
	hasStatus, status := statusOf(td.doc)

	return schema.RawVariant{
		Name:           td.spec.Name.Name,
		Shape:          shape,
		Arity:          arity,
		Pointer:        pointer,
		TypeParamCount: typeParamCount(td.spec),
		HasStatus:      hasStatus,
		Status:         status,
		Pos:            p.position(td.spec.Name.Pos()),
		Imports:        td.file.imports,
	}
}

// fieldShape 字段形态
//
//	struct{}                 -> unit
//	struct{ A; *B }          -> tuple(2)
//	struct{ Msg string }     -> named
//	string / []byte / func() -> tuple(1)
func fieldShape(expr ast.Expr) (schema.Shape, int) {
	st, ok := expr.(*ast.StructType)
	if !ok {
		return schema.ShapeTuple, 1
	}
	if st.Fields == nil || len(st.Fields.List) == 0 {
		return schema.ShapeUnit, 0
	}
	named := lo.ContainsBy(st.Fields.List, func(f *ast.Field) bool { return len(f.Names) > 0 })
	if named {
		return schema.ShapeNamed, st.Fields.NumFields()
	}
	return schema.ShapeTuple, len(st.Fields.List)
}

func typeParams(spec *ast.TypeSpec) []schema.TypeParam {
	if spec.TypeParams == nil {
		return nil
	}
	return lo.Map(spec.TypeParams.List, func(f *ast.Field, _ int) schema.TypeParam {
		return schema.TypeParam{
			Names:      lo.Map(f.Names, func(n *ast.Ident, _ int) string { return n.Name }),
			Constraint: types.ExprString(f.Type),
		}
	})
}

func typeParamCount(spec *ast.TypeSpec) int {
	if spec.TypeParams == nil {
		return 0
	}
	return lo.SumBy(spec.TypeParams.List, func(f *ast.Field) int { return len(f.Names) })
}

// methodSet 接口方法集中与生成相关的部分
type methodSet struct {
	hasError bool
	seals    []string
}

// interfaceMethods 收集接口方法，展开本包内嵌入的接口
func (p *Package) interfaceMethods(iface *ast.InterfaceType, ms *methodSet, visited map[string]bool) {
	if iface.Methods == nil {
		return
	}
	for _, m := range iface.Methods.List {
		if fn, ok := m.Type.(*ast.FuncType); ok {
			for _, n := range m.Names {
				switch {
				case n.Name == "Error" && isErrorSignature(fn):
					ms.hasError = true
				case !n.IsExported() && !lo.Contains(ms.seals, n.Name):
					ms.seals = append(ms.seals, n.Name)
				}
			}
			continue
		}

		embedded, _ := receiverBase(m.Type)
		if embedded == "error" {
			ms.hasError = true
			continue
		}
		td, ok := p.types[embedded]
		if !ok || visited[embedded] {
			continue
		}
		if inner, ok := td.spec.Type.(*ast.InterfaceType); ok {
			visited[embedded] = true
			p.interfaceMethods(inner, ms, visited)
		}
	}
}

// isErrorSignature 判断是否为 func() string
func isErrorSignature(fn *ast.FuncType) bool {
	if fn.Params != nil && fn.Params.NumFields() > 0 {
		return false
	}
	if fn.Results == nil || fn.Results.NumFields() != 1 {
		return false
	}
	ident, ok := fn.Results.List[0].Type.(*ast.Ident)
	return ok && ident.Name == "string"
}

// implements 类型是否声明了全部密封方法
// 任一密封方法或本类型声明的 Error 方法使用指针接收者时返回 pointer
func (p *Package) implements(typeName string, seals []string) (pointer bool, ok bool) {
	methods := p.methods[typeName]
	for _, seal := range seals {
		m, found := lo.Find(methods, func(m methodDecl) bool { return m.name == seal })
		if !found {
			return false, false
		}
		pointer = pointer || m.pointer
	}
	if m, found := lo.Find(methods, func(m methodDecl) bool { return m.name == "Error" }); found {
		pointer = pointer || m.pointer
	}
	return pointer, true
}
