package schema

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
)

// CodesPath grpc 状态码包的导入路径
const CodesPath = "google.golang.org/grpc/codes"

// maxCode 最大的标准状态码（Unauthenticated）
const maxCode = codes.Unauthenticated

// canonicalCodes 标准状态码名称 -> 值
var canonicalCodes = func() map[string]codes.Code {
	m := make(map[string]codes.Code, maxCode+1)
	for c := codes.OK; c <= maxCode; c++ {
		m[c.String()] = c
	}
	return m
}()

// CanonicalCode 按名称查找标准状态码，名称区分大小写
func CanonicalCode(name string) (codes.Code, bool) {
	c, ok := canonicalCodes[name]
	return c, ok
}

// CanonicalNames 按数值顺序返回所有标准状态码名称
func CanonicalNames() []string {
	names := make([]string, 0, maxCode+1)
	for c := codes.OK; c <= maxCode; c++ {
		names = append(names, c.String())
	}
	return names
}

func canonical(c codes.Code, raw string) *StatusExpr {
	return &StatusExpr{Kind: StatusCanonical, Code: c, Name: c.String(), Raw: raw}
}

// statusError 状态码表达式解析失败，由 Extract 包装为 ConfigError
type statusError struct {
	err    error
	detail string
}

func newStatusError(err error, format string, args ...any) *statusError {
	return &statusError{err: err, detail: fmt.Sprintf(format, args...)}
}

// parseStatus 解析 @GrpcStatus 的 code 表达式
//
//	NotFound / codes.NotFound / 5  -> 标准状态码
//	MyCode                         -> 本包中的值（imports 之外的包级标识符）
//	mycodes.Teapot                 -> 导入包中的值
//
// imports 为变体所在文件的导入（别名 -> 路径），idents 为包级值标识符
func parseStatus(raw string, imports map[string]string, idents map[string]bool) (*StatusExpr, *statusError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, newStatusError(ErrMalformedStatus, "缺少 code 参数")
	}

	node, err := parser.ParseExpr(raw)
	if err != nil {
		return nil, newStatusError(ErrMalformedStatus, "无法解析 %q: %v", raw, err)
	}
	for {
		paren, ok := node.(*ast.ParenExpr)
		if !ok {
			break
		}
		node = paren.X
	}

	switch x := node.(type) {
	case *ast.Ident:
		if c, ok := CanonicalCode(x.Name); ok {
			return canonical(c, raw), nil
		}
		if idents[x.Name] {
			return &StatusExpr{Kind: StatusSymbol, Name: x.Name, Raw: raw}, nil
		}
		return nil, newStatusError(ErrUnknownCode, "%s 不是标准状态码（%s），也不是本包中的值",
			x.Name, strings.Join(CanonicalNames(), ", "))

	case *ast.BasicLit:
		if x.Kind != token.INT {
			return nil, newStatusError(ErrWrongDomain, "%s 不是状态码", raw)
		}
		n, err := strconv.ParseInt(x.Value, 0, 64)
		if err != nil || n < 0 || n > int64(maxCode) {
			return nil, newStatusError(ErrWrongDomain, "状态码 %s 超出范围 [0, %d]", x.Value, maxCode)
		}
		return canonical(codes.Code(n), raw), nil

	case *ast.SelectorExpr:
		pkg, ok := x.X.(*ast.Ident)
		if !ok {
			return nil, newStatusError(ErrWrongDomain, "不支持的选择器 %s", raw)
		}
		path, imported := imports[pkg.Name]
		if path == CodesPath || (!imported && pkg.Name == "codes") {
			c, ok := CanonicalCode(x.Sel.Name)
			if !ok {
				return nil, newStatusError(ErrUnknownCode, "codes.%s 不存在", x.Sel.Name)
			}
			return canonical(c, raw), nil
		}
		if !imported {
			return nil, newStatusError(ErrWrongDomain, "未导入的包 %s", pkg.Name)
		}
		return &StatusExpr{
			Kind:     StatusSymbol,
			Name:     x.Sel.Name,
			PkgPath:  path,
			PkgAlias: pkg.Name,
			Raw:      raw,
		}, nil

	default:
		return nil, newStatusError(ErrWrongDomain, "%s 不是状态码", raw)
	}
}
