package sentinel

import "errors"

var (
	// @GrpcStatus(code=NotFound)
	ErrNotFound = errors.New("not found")

	// @GrpcStatus(code=PermissionDenied)
	ErrForbidden = errors.New("forbidden")
)

// @GrpcStatus(code=Internal)
var ErrBroken = errors.New("broken")
