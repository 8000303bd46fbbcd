package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// instrumentationName 业务 Span 使用的 Tracer 名称
const instrumentationName = "github.com/ceyewan/itemscope"

const (
	// 业务语义属性键
	AttrItemID    = "item.id"
	AttrItemCount = "item.count"
	AttrItemSkip  = "item.skip"
	AttrItemLimit = "item.limit"
)

// SpanNameItem 返回条目操作的 Span 名称，例如 item.create
func SpanNameItem(operation string) string {
	if operation == "" {
		return "item"
	}
	return "item." + operation
}

// Start 从全局 TracerProvider 开启一个内部 Span
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name,
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
		oteltrace.WithAttributes(attrs...))
}

// End 根据 err 设置 Span 状态并结束
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
