package clog

import "context"

// discard 丢弃全部输出，无状态，可在 goroutine 间共享
type discard struct{}

var discardLogger Logger = discard{}

// Discard 返回丢弃全部日志的 Logger
//
// 各组件未注入 WithLogger 时以它作为默认值，调用方无需判空。
func Discard() Logger {
	return discardLogger
}

func (discard) Debug(string, ...Field)                         {}
func (discard) Info(string, ...Field)                          {}
func (discard) Warn(string, ...Field)                          {}
func (discard) Error(string, ...Field)                         {}
func (discard) Fatal(string, ...Field)                         {}
func (discard) DebugContext(context.Context, string, ...Field) {}
func (discard) InfoContext(context.Context, string, ...Field)  {}
func (discard) WarnContext(context.Context, string, ...Field)  {}
func (discard) ErrorContext(context.Context, string, ...Field) {}
func (discard) FatalContext(context.Context, string, ...Field) {}

func (d discard) With(...Field) Logger           { return d }
func (d discard) WithNamespace(...string) Logger { return d }
func (discard) SetLevel(Level) error             { return nil }
func (discard) Flush()                           {}
