package outputs

//go:gogen: plugin:grpcerr -output `status_gen`

// @GrpcError
type AError interface {
	error
	isA()
}

// @GrpcError(output=b_status.go)
type BError interface {
	error
	isB()
}

// @GrpcError(func=AErrorToStatus)
type CError interface {
	error
	isC()
}
