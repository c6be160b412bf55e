package grpcerrgen_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/packages"

	"github.com/donutnomad/grpcerrgen/internal/utils"
)

// typeCheck 把生成结果作为 overlay 与源码一起做类型检查
func typeCheck(t *testing.T, dir string) *packages.Package {
	t.Helper()

	res := generate(t, dir)
	require.Empty(t, res.Errors)
	require.NotEmpty(t, res.Definitions)

	overlay := make(map[string][]byte, len(res.Definitions))
	for path, def := range res.Definitions {
		src, err := utils.FormatSource(path, def.Bytes())
		require.NoError(t, err, def.String())
		overlay[path] = src
	}

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	pkgs, err := packages.Load(&packages.Config{
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo,
		Dir:     absDir,
		Overlay: overlay,
	}, ".")
	require.NoError(t, err)
	require.Len(t, pkgs, 1)

	pkg := pkgs[0]
	for _, e := range pkg.Errors {
		t.Errorf("%s: %s", dir, e)
	}
	return pkg
}

func TestGeneratedCodeCompiles(t *testing.T) {
	tests := []struct {
		dir   string
		funcs []string
	}{
		{"testdata/basic", []string{"UserErrorToStatus", "OrderStatus"}},
		{"testdata/sentinel", []string{"SentinelToStatus"}},
		{"testdata/generic", []string{"ErrorToStatus"}},
		{"testdata/symbol", []string{"ErrorToStatus"}},
	}
	for _, tt := range tests {
		t.Run(filepath.Base(tt.dir), func(t *testing.T) {
			pkg := typeCheck(t, tt.dir)
			require.NotNil(t, pkg.Types)
			for _, name := range tt.funcs {
				assert.NotNil(t, pkg.Types.Scope().Lookup(name), name)
			}
		})
	}
}

func TestGenerateSymbols(t *testing.T) {
	res := generate(t, "testdata/symbol")
	require.Empty(t, res.Errors)

	_, code := onlyDefinition(t, res)
	assert.Contains(t, code, `api "github.com/donutnomad/grpcerrgen/grpcerrgen/testdata/symbol/apicodes"`)
	assert.Contains(t, code, "case Brewing, *Brewing:")
	assert.Contains(t, code, "code := api.Teapot")
	assert.Contains(t, code, "case *Quota:")
	assert.Contains(t, code, "code := quotaCode")
	assert.Contains(t, code, "code := internalCode")
	assert.Contains(t, code, "func (e *Quota) GRPCStatus()")
}
