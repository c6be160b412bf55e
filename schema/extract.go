package schema

import (
	"errors"
	"fmt"
	"slices"
)

// Extract 校验 RawType，返回可供生成使用的 ErrorType
//
// 非密封接口返回 *StructuralError；注解配置错误全部收集后以 errors.Join 返回，
// 每一项都是 *ConfigError。任何错误都不会返回部分结果。
func Extract(raw *RawType) (*ErrorType, error) {
	if raw == nil {
		return nil, &StructuralError{Reason: "缺少类型描述"}
	}

	switch raw.Kind {
	case KindSum:
		if !raw.HasErrorMethod {
			return nil, structural(raw, "接口的方法集中没有 Error() string")
		}
		if len(raw.SealMethods) == 0 {
			return nil, structural(raw, "接口没有未导出的密封方法，无法枚举变体")
		}
	case KindSentinels:
	case KindProduct:
		return nil, structural(raw, "期望密封接口，而不是结构体")
	default:
		return nil, structural(raw, fmt.Sprintf("期望密封接口，而不是 %s", raw.Kind))
	}

	sumParams := 0
	for _, tp := range raw.TypeParams {
		sumParams += len(tp.Names)
	}

	t := &ErrorType{
		Name:        raw.Name,
		PackageName: raw.PackageName,
		TypeParams:  slices.Clone(raw.TypeParams),
		Kind:        raw.Kind,
		Pos:         raw.Pos,
		Variants:    make([]Variant, 0, len(raw.Variants)),
	}

	var errs []error
	seen := make(map[string]bool, len(raw.Variants))

	for _, rv := range raw.Variants {
		if seen[rv.Name] {
			errs = append(errs, &ConfigError{Variant: rv.Name, Pos: rv.Pos, Err: ErrDuplicateVariant})
			continue
		}
		seen[rv.Name] = true

		v, err := extractVariant(raw, rv, sumParams)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.Variants = append(t.Variants, v)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

func structural(raw *RawType, reason string) *StructuralError {
	return &StructuralError{Type: raw.Name, Kind: raw.Kind, Pos: raw.Pos, Reason: reason}
}

func extractVariant(raw *RawType, rv RawVariant, sumParams int) (Variant, error) {
	v := Variant{
		Name:    rv.Name,
		Shape:   rv.Shape,
		Arity:   rv.Arity,
		Pointer: rv.Pointer,
		Pos:     rv.Pos,
	}

	switch rv.Shape {
	case ShapeUnit:
		v.Arity = 0
	case ShapeTuple:
		if v.Arity < 1 {
			v.Arity = 1
		}
	case ShapeNamed:
	case ShapeValue:
		if raw.Kind != KindSentinels {
			return Variant{}, &ConfigError{Variant: rv.Name, Pos: rv.Pos, Err: ErrStructuralMismatch,
				Detail: "变量不能作为接口的变体"}
		}
	default:
		return Variant{}, &ConfigError{Variant: rv.Name, Pos: rv.Pos, Err: ErrStructuralMismatch,
			Detail: "无法识别字段形态"}
	}

	switch rv.TypeParamCount {
	case 0:
	case sumParams:
		v.Generic = true
	default:
		return Variant{}, &ConfigError{Variant: rv.Name, Pos: rv.Pos, Err: ErrTypeParams,
			Detail: fmt.Sprintf("变体有 %d 个类型参数，%s 有 %d 个", rv.TypeParamCount, raw.Name, sumParams)}
	}

	if rv.HasStatus {
		imports := rv.Imports
		if imports == nil {
			imports = raw.Imports
		}
		status, serr := parseStatus(rv.Status, imports, raw.Idents)
		if serr != nil {
			return Variant{}, &ConfigError{Variant: rv.Name, Pos: rv.Pos, Err: serr.err, Detail: serr.detail}
		}
		v.Status = status
	}

	return v, nil
}
