package schema

import (
	"errors"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func pos(line int) token.Position {
	return token.Position{Filename: "errors.go", Line: line, Column: 6}
}

func sumType(variants ...RawVariant) *RawType {
	return &RawType{
		Name:           "Error",
		PackageName:    "svc",
		Kind:           KindSum,
		Pos:            pos(3),
		HasErrorMethod: true,
		SealMethods:    []string{"isError"},
		Variants:       variants,
		Imports:        map[string]string{"codes": CodesPath, "appcodes": "example.com/app/codes"},
		Idents:         map[string]bool{"TeapotCode": true},
	}
}

func TestExtractNotFoundDatabase(t *testing.T) {
	raw := sumType(
		RawVariant{Name: "NotFound", Shape: ShapeUnit, HasStatus: true, Status: "NotFound", Pos: pos(10)},
		RawVariant{Name: "Database", Shape: ShapeTuple, Arity: 1, Pos: pos(14)},
	)

	et, err := Extract(raw)
	require.NoError(t, err)
	require.Len(t, et.Variants, 2)

	assert.Equal(t, "NotFound", et.Variants[0].Name)
	require.NotNil(t, et.Variants[0].Status)
	assert.Equal(t, codes.NotFound, et.Variants[0].Status.Code)
	assert.Equal(t, codes.NotFound, ResolveStatus(et.Variants[0]).Code)

	assert.Equal(t, "Database", et.Variants[1].Name)
	assert.Nil(t, et.Variants[1].Status)
	assert.Equal(t, Internal, ResolveStatus(et.Variants[1]))
}

func TestExtractPreservesOrderAndShape(t *testing.T) {
	raw := sumType(
		RawVariant{Name: "C", Shape: ShapeNamed, Pos: pos(30)},
		RawVariant{Name: "A", Shape: ShapeTuple, Arity: 2, Pointer: true, Pos: pos(10)},
		RawVariant{Name: "B", Shape: ShapeUnit, Arity: 3, Pos: pos(20)},
	)

	et, err := Extract(raw)
	require.NoError(t, err)

	names := []string{et.Variants[0].Name, et.Variants[1].Name, et.Variants[2].Name}
	assert.Equal(t, []string{"C", "A", "B"}, names)
	assert.Equal(t, ShapeNamed, et.Variants[0].Shape)
	assert.Equal(t, 2, et.Variants[1].Arity)
	assert.True(t, et.Variants[1].Pointer)
	assert.Equal(t, 0, et.Variants[2].Arity, "无字段变体的元数为 0")
}

func TestExtractZeroVariants(t *testing.T) {
	et, err := Extract(sumType())
	require.NoError(t, err)
	assert.Empty(t, et.Variants)
}

func TestExtractStructuralMismatch(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawType
	}{
		{"struct", &RawType{Name: "Error", Kind: KindProduct, Pos: pos(1)}},
		{"named basic type", &RawType{Name: "Error", Kind: KindOther, Pos: pos(1)}},
		{"no Error method", &RawType{Name: "Error", Kind: KindSum, SealMethods: []string{"isError"}}},
		{"no seal method", &RawType{Name: "Error", Kind: KindSum, HasErrorMethod: true}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			et, err := Extract(tt.raw)
			require.Error(t, err)
			assert.Nil(t, et)
			assert.ErrorIs(t, err, ErrStructuralMismatch)

			var se *StructuralError
			assert.ErrorAs(t, err, &se)

			var ce *ConfigError
			assert.False(t, errors.As(err, &ce), "结构错误与配置错误不同")
		})
	}

	_, err := Extract(&RawType{Name: "Error", Kind: KindProduct, Pos: pos(7)})
	assert.Contains(t, err.Error(), "errors.go:7:6")
	assert.Contains(t, err.Error(), "结构体")
}

func TestExtractStatusExpressions(t *testing.T) {
	tests := []struct {
		status   string
		wantKind StatusKind
		wantCode codes.Code
		wantName string
		wantPkg  string
		wantErr  error
	}{
		{status: "NotFound", wantKind: StatusCanonical, wantCode: codes.NotFound, wantName: "NotFound"},
		{status: "codes.PermissionDenied", wantKind: StatusCanonical, wantCode: codes.PermissionDenied, wantName: "PermissionDenied"},
		{status: "(Unavailable)", wantKind: StatusCanonical, wantCode: codes.Unavailable, wantName: "Unavailable"},
		{status: "5", wantKind: StatusCanonical, wantCode: codes.NotFound, wantName: "NotFound"},
		{status: "0x10", wantKind: StatusCanonical, wantCode: codes.Unauthenticated, wantName: "Unauthenticated"},
		{status: "Internal", wantKind: StatusCanonical, wantCode: codes.Internal, wantName: "Internal"},
		{status: "TeapotCode", wantKind: StatusSymbol, wantName: "TeapotCode"},
		{status: "appcodes.Teapot", wantKind: StatusSymbol, wantName: "Teapot", wantPkg: "example.com/app/codes"},

		{status: "", wantErr: ErrMalformedStatus},
		{status: "NotFound(", wantErr: ErrMalformedStatus},
		{status: "Missing", wantErr: ErrUnknownCode},
		{status: "notfound", wantErr: ErrUnknownCode},
		{status: "codes.Teapot", wantErr: ErrUnknownCode},
		{status: "17", wantErr: ErrWrongDomain},
		{status: "-1", wantErr: ErrWrongDomain},
		{status: `"NotFound"`, wantErr: ErrWrongDomain},
		{status: "http.StatusNotFound", wantErr: ErrWrongDomain},
		{status: "codes.Code(5)", wantErr: ErrWrongDomain},
		{status: "a.b.C", wantErr: ErrWrongDomain},
		{status: "NotFound + 1", wantErr: ErrWrongDomain},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			raw := sumType(RawVariant{Name: "V", Shape: ShapeUnit, HasStatus: true, Status: tt.status, Pos: pos(12)})
			et, err := Extract(raw)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)

				var ce *ConfigError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, "V", ce.Variant)
				assert.Equal(t, 12, ce.Pos.Line)
				assert.Contains(t, err.Error(), "errors.go:12:6: 变体 V")
				return
			}

			require.NoError(t, err)
			s := et.Variants[0].Status
			require.NotNil(t, s)
			assert.Equal(t, tt.wantKind, s.Kind)
			assert.Equal(t, tt.wantName, s.Name)
			assert.Equal(t, tt.wantPkg, s.PkgPath)
			assert.Equal(t, tt.status, s.Raw)
			if tt.wantKind == StatusCanonical {
				assert.Equal(t, tt.wantCode, s.Code)
			}
		})
	}
}

func TestExtractCodesAliasFromFileImports(t *testing.T) {
	raw := sumType(RawVariant{
		Name: "V", Shape: ShapeUnit, HasStatus: true, Status: "grpccodes.Aborted", Pos: pos(1),
		Imports: map[string]string{"grpccodes": CodesPath},
	})
	et, err := Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, codes.Aborted, et.Variants[0].Status.Code)

	// 文件里 codes 指向其他包时，不再视为 gRPC 状态码
	raw = sumType(RawVariant{
		Name: "V", Shape: ShapeUnit, HasStatus: true, Status: "codes.Teapot", Pos: pos(1),
		Imports: map[string]string{"codes": "example.com/mycodes"},
	})
	et, err = Extract(raw)
	require.NoError(t, err)
	assert.Equal(t, StatusSymbol, et.Variants[0].Status.Kind)
	assert.Equal(t, "example.com/mycodes", et.Variants[0].Status.PkgPath)
}

func TestExtractCollectsAllConfigErrors(t *testing.T) {
	raw := sumType(
		RawVariant{Name: "A", Shape: ShapeUnit, HasStatus: true, Status: "Bogus", Pos: pos(10)},
		RawVariant{Name: "B", Shape: ShapeUnit, Pos: pos(20)},
		RawVariant{Name: "C", Shape: ShapeUnit, HasStatus: true, Status: `"x"`, Pos: pos(30)},
		RawVariant{Name: "B", Shape: ShapeUnit, Pos: pos(40)},
	)

	et, err := Extract(raw)
	require.Error(t, err)
	assert.Nil(t, et, "配置错误时不返回部分结果")

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	errs := joined.Unwrap()
	require.Len(t, errs, 3)

	assert.ErrorIs(t, errs[0], ErrUnknownCode)
	assert.ErrorIs(t, errs[1], ErrWrongDomain)
	assert.ErrorIs(t, errs[2], ErrDuplicateVariant)
	assert.Contains(t, errs[2].Error(), "errors.go:40:6")
}

func TestExtractTypeParams(t *testing.T) {
	raw := sumType(
		RawVariant{Name: "Plain", Shape: ShapeUnit, Pos: pos(1)},
		RawVariant{Name: "Wrapped", Shape: ShapeNamed, TypeParamCount: 2, Pos: pos(2)},
	)
	raw.TypeParams = []TypeParam{{Names: []string{"T"}, Constraint: "any"}, {Names: []string{"K"}, Constraint: "comparable"}}

	et, err := Extract(raw)
	require.NoError(t, err)
	assert.False(t, et.Variants[0].Generic)
	assert.True(t, et.Variants[1].Generic)
	assert.Equal(t, "[T any, K comparable]", et.TypeParamList())
	assert.Equal(t, "[T, K]", et.TypeArgs())
	assert.Equal(t, "Error[T, K]", et.Qualified())

	raw.Variants = append(raw.Variants, RawVariant{Name: "Bad", Shape: ShapeUnit, TypeParamCount: 1, Pos: pos(3)})
	_, err = Extract(raw)
	assert.ErrorIs(t, err, ErrTypeParams)
}

func TestTypeParamListGrouped(t *testing.T) {
	et := &ErrorType{Name: "E", TypeParams: []TypeParam{{Names: []string{"A", "B"}, Constraint: "~int | ~string"}}}
	assert.Equal(t, "[A, B ~int | ~string]", et.TypeParamList())
	assert.Equal(t, "E[A, B]", et.Qualified())

	plain := &ErrorType{Name: "E"}
	assert.Empty(t, plain.TypeParamList())
	assert.Equal(t, "E", plain.Qualified())
}

func TestSentinels(t *testing.T) {
	raw := &RawType{
		PackageName: "svc",
		Kind:        KindSentinels,
		Variants: []RawVariant{
			{Name: "ErrNotFound", Shape: ShapeValue, HasStatus: true, Status: "NotFound", Pos: pos(5)},
			{Name: "ErrBroken", Shape: ShapeValue, HasStatus: true, Status: "Internal", Pos: pos(6)},
		},
	}
	et, err := Extract(raw)
	require.NoError(t, err)
	require.Len(t, et.Variants, 2)
	assert.Equal(t, ShapeValue, et.Variants[0].Shape)

	// 值形态只能出现在哨兵集合中
	_, err = Extract(sumType(RawVariant{Name: "ErrX", Shape: ShapeValue, Pos: pos(1)}))
	assert.ErrorIs(t, err, ErrStructuralMismatch)
}

func TestIsInternal(t *testing.T) {
	known, internal := Internal.IsInternal()
	assert.True(t, known)
	assert.True(t, internal)

	known, internal = StatusExpr{Kind: StatusCanonical, Code: codes.NotFound}.IsInternal()
	assert.True(t, known)
	assert.False(t, internal)

	known, _ = StatusExpr{Kind: StatusSymbol, Name: "X"}.IsInternal()
	assert.False(t, known)
}

func TestExplicitInternalEqualsDefault(t *testing.T) {
	raw := sumType(
		RawVariant{Name: "Explicit", Shape: ShapeUnit, HasStatus: true, Status: "Internal", Pos: pos(1)},
		RawVariant{Name: "Implicit", Shape: ShapeUnit, Pos: pos(2)},
	)
	et, err := Extract(raw)
	require.NoError(t, err)

	explicit := ResolveStatus(et.Variants[0])
	implicit := ResolveStatus(et.Variants[1])
	assert.Equal(t, implicit.Code, explicit.Code)
	assert.Equal(t, implicit.Kind, explicit.Kind)
}

func TestCanonicalNames(t *testing.T) {
	names := CanonicalNames()
	require.Len(t, names, 17)
	assert.Equal(t, "OK", names[0])
	assert.Equal(t, "Internal", names[13])
	assert.Equal(t, "Unauthenticated", names[16])

	_, ok := CanonicalCode("Internal")
	assert.True(t, ok)
	_, ok = CanonicalCode("Code(17)")
	assert.False(t, ok)
}
