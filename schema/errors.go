package schema

import (
	"errors"
	"fmt"
	"go/token"
)

var (
	ErrStructuralMismatch = errors.New("不是错误和类型")
	ErrMalformedStatus    = errors.New("@GrpcStatus 格式错误")
	ErrUnknownCode        = errors.New("未知的 gRPC 状态码")
	ErrWrongDomain        = errors.New("表达式不属于 gRPC 状态码")
	ErrTypeParams         = errors.New("变体的类型参数与错误类型不一致")
	ErrDuplicateVariant   = errors.New("变体重复")
)

// StructuralError 输入不是密封接口
type StructuralError struct {
	Type   string
	Kind   Kind
	Pos    token.Position
	Reason string
}

func (e *StructuralError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", e.Pos, e.Type, ErrStructuralMismatch)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *StructuralError) Unwrap() error {
	return ErrStructuralMismatch
}

// ConfigError 某个变体的注解配置错误
type ConfigError struct {
	Variant string
	Pos     token.Position
	Err     error
	Detail  string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: 变体 %s: %v", e.Pos, e.Variant, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
