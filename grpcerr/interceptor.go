package grpcerr

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StatusFunc 把错误转换为 status，不认识的错误返回 nil
type StatusFunc func(err error) *status.Status

// As 把生成的转换函数适配为 StatusFunc
// 错误链中存在 E 类型的错误时调用 conv
//
//	grpcerr.As(svc.ErrorToStatus)
func As[E error](conv func(E) *status.Status) StatusFunc {
	return func(err error) *status.Status {
		var target E
		if !errors.As(err, &target) {
			return nil
		}
		return conv(target)
	}
}

// Classifier 自己声明状态码的错误，不需要生成转换函数
type Classifier interface {
	error
	GRPCCode() codes.Code
}

// ResolveCode 返回错误链中第一个 Classifier 的状态码，没有时为 Internal
func ResolveCode(err error) codes.Code {
	var c Classifier
	if errors.As(err, &c) {
		return c.GRPCCode()
	}
	return codes.Internal
}

// grpcStatus status 错误和生成的 GRPCStatus 方法实现的接口
type grpcStatus interface {
	GRPCStatus() *status.Status
}

// ToStatus 依次尝试 convs，返回第一个非 nil 的结果
//
// 都不认识时:
//   - 实现了 Classifier: 使用其状态码，Internal 同样脱敏
//   - 错误链中有 GRPCStatus 实现: 原样使用其返回值
//     status.FromError 会用外层的 err.Error() 覆盖信息，这里不使用
//   - context 取消或超时: 转换为 Canceled/DeadlineExceeded
//   - 其他: 记录日志并返回 Internal
func ToStatus(err error, convs ...StatusFunc) *status.Status {
	if err == nil {
		return nil
	}
	for _, conv := range convs {
		if st := conv(err); st != nil {
			return st
		}
	}
	var c Classifier
	if errors.As(err, &c) {
		if code := c.GRPCCode(); code != codes.Internal {
			return status.New(code, err.Error())
		}
		LogInternal(err)
		return status.New(codes.Internal, InternalMessage)
	}
	var gs grpcStatus
	if errors.As(err, &gs) {
		if st := gs.GRPCStatus(); st != nil {
			return st
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err)
	}
	LogInternal(err)
	return status.New(codes.Internal, InternalMessage)
}

// UnaryServerInterceptor 把 handler 返回的错误转换为 gRPC status
func UnaryServerInterceptor(convs ...StatusFunc) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		return nil, ToStatus(err, convs...).Err()
	}
}

// StreamServerInterceptor 流式调用版本的 UnaryServerInterceptor
func StreamServerInterceptor(convs ...StatusFunc) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, ss)
		if err == nil {
			return nil
		}
		return ToStatus(err, convs...).Err()
	}
}
