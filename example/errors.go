// Package example 演示 grpcerrgen 的用法。
//
// 修改错误类型后运行 go generate 重新生成 errors_grpcerr.go。
package example

//go:generate go run github.com/donutnomad/grpcerrgen gen .

import (
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
)

// ServiceError 用户服务返回的错误
// @GrpcError(methods=true)
type ServiceError interface {
	error
	isServiceError()
}

// NotFound 用户不存在，信息原样返回给调用方
// @GrpcStatus(code=NotFound)
type NotFound struct {
	ID int64
}

func (e NotFound) Error() string { return fmt.Sprintf("user %d not found", e.ID) }
func (NotFound) isServiceError() {}

// Database 数据库错误，未标注，作为 Internal 处理
type Database struct {
	Err error
}

func (e Database) Error() string { return "database: " + e.Err.Error() }
func (e Database) Unwrap() error { return e.Err }
func (Database) isServiceError() {}

// InvalidEmail 参数错误
// @GrpcStatus(code=InvalidArgument)
type InvalidEmail string

func (e InvalidEmail) Error() string { return fmt.Sprintf("invalid email %q", string(e)) }
func (InvalidEmail) isServiceError() {}

// rateLimitCode 限流时返回的状态码
const rateLimitCode = codes.ResourceExhausted

// RateLimited 请求过于频繁
// @GrpcStatus(code=rateLimitCode)
type RateLimited struct {
	RetryAfter time.Duration
}

func (e RateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}
func (RateLimited) isServiceError() {}

const storageCode = codes.Internal

// Storage 对象存储错误，状态码为 Internal，同样脱敏
// @GrpcStatus(code=storageCode)
type Storage struct {
	Bucket string
}

func (e Storage) Error() string { return "storage: bucket " + e.Bucket + " unavailable" }
func (Storage) isServiceError() {}

// NoVariants 没有任何变体的错误类型
// @GrpcError
type NoVariants interface {
	error
	isNoVariants()
}
