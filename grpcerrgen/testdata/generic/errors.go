package generic

// Error 泛型错误
// @GrpcError(logger=zap)
type Error[K comparable] interface {
	error
	isError()
}

// @GrpcStatus(code=NotFound)
type Missing[K comparable] struct {
	Key K
}

func (Missing[K]) Error() string { return "missing" }
func (*Missing[K]) isError()     {}

// @GrpcStatus(code=4)
type Slow struct{}

func (Slow) Error() string { return "slow" }
func (Slow) isError()      {}
