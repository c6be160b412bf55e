// Package grpcerr 是生成代码使用的运行时辅助包。
//
// 生成的转换函数遇到 Internal 错误时调用 LogInternal 记录完整错误，
// 并向调用方返回固定的 InternalMessage。
package grpcerr

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.uber.org/zap"
)

// InternalMessage Internal 错误返回给调用方的信息
const InternalMessage = "Internal server error."

// Logger 记录 Internal 错误
type Logger interface {
	LogInternal(err error)
}

// LoggerFunc 函数形式的 Logger
type LoggerFunc func(err error)

func (f LoggerFunc) LogInternal(err error) { f(err) }

// SlogLogger 使用 slog 记录，Logger 为 nil 时使用 slog.Default()
type SlogLogger struct {
	Logger *slog.Logger
}

func (l SlogLogger) LogInternal(err error) {
	lg := l.Logger
	if lg == nil {
		lg = slog.Default()
	}
	lg.LogAttrs(context.Background(), slog.LevelError, "internal server error", slog.Any("error", err))
}

// ZapLogger 使用 zap 记录，Logger 为 nil 时使用 zap.L()
type ZapLogger struct {
	Logger *zap.Logger
}

func (l ZapLogger) LogInternal(err error) {
	lg := l.Logger
	if lg == nil {
		lg = zap.L()
	}
	lg.Error("internal server error", zap.Error(err))
}

type loggerHolder struct {
	Logger
}

var current atomic.Pointer[loggerHolder]

// SetLogger 替换全局 Logger，传入 nil 恢复默认的 SlogLogger
// 可以在任意 goroutine 中调用
func SetLogger(l Logger) {
	if l == nil {
		current.Store(nil)
		return
	}
	current.Store(&loggerHolder{l})
}

// GetLogger 返回当前的全局 Logger
func GetLogger() Logger {
	if h := current.Load(); h != nil {
		return h.Logger
	}
	return SlogLogger{}
}

// LogInternal 使用全局 Logger 记录 Internal 错误，nil 错误不记录
func LogInternal(err error) {
	if err == nil {
		return
	}
	GetLogger().LogInternal(err)
}
