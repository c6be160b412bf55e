package basic

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

// UserError 用户服务错误
// @GrpcError(methods=true)
type UserError interface {
	error
	isUserError()
}

// @GrpcStatus(code=NotFound)
type UserNotFound struct {
	ID int64
}

func (e UserNotFound) Error() string { return fmt.Sprintf("user %d not found", e.ID) }
func (UserNotFound) isUserError()    {}

// Database 未标注，使用 Internal
type Database struct{ error }

func (Database) isUserError() {}

// @GrpcStatus(code=codes.InvalidArgument)
type Validation struct {
	Field, Reason string
}

func (v *Validation) Error() string { return v.Field + ": " + v.Reason }
func (*Validation) isUserError()    {}

// @GrpcStatus(code=Internal)
type Corrupted struct{}

func (Corrupted) Error() string { return "corrupted" }
func (Corrupted) isUserError()  {}

var _ = codes.OK

// OrderError 订单错误
// @GrpcError(func=OrderStatus, logger=slog)
type OrderError interface {
	error
	isOrderError()
}

// @GrpcStatus(code=FailedPrecondition)
type OrderClosed struct{}

func (OrderClosed) Error() string { return "order closed" }
func (OrderClosed) isOrderError() {}
