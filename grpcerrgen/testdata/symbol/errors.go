package symbol

import (
	"google.golang.org/grpc/codes"

	api "github.com/donutnomad/grpcerrgen/grpcerrgen/testdata/symbol/apicodes"
)

// api 仅在注解中引用,此处保持导入被使用
var _ = api.Teapot

const (
	quotaCode    = codes.ResourceExhausted
	internalCode = codes.Internal
)

// @GrpcError(methods=true)
type Error interface {
	error
	isError()
}

// @GrpcStatus(code=api.Teapot)
type Brewing string

func (b Brewing) Error() string { return string(b) }
func (Brewing) isError()        {}

// @GrpcStatus(code=quotaCode)
type Quota struct{ Used, Limit int }

func (*Quota) Error() string { return "quota" }
func (*Quota) isError()      {}

// @GrpcStatus(code=internalCode)
type Leak struct{}

func (Leak) Error() string { return "leak" }
func (Leak) isError()      {}
