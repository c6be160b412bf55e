package invalid

// 结构体不是密封接口
// @GrpcError
type Plain struct {
	Msg string
}

func (p Plain) Error() string { return p.Msg }

// Error 变体使用了未知的状态码
// @GrpcError
type Error interface {
	error
	isError()
}

// @GrpcStatus(code=NotFund)
type Missing struct{}

func (Missing) Error() string { return "missing" }
func (Missing) isError()      {}

// 不属于任何错误类型
// @GrpcStatus(code=NotFound)
type Stray struct{}

func (Stray) Error() string { return "stray" }

// @GrpcError
var ErrVar = Plain{Msg: "var"}
