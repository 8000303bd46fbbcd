package clog

import (
	"log/slog"
	"strings"
)

// NamespaceKey 是日志中命名空间的字段名，用于标识服务模块
const NamespaceKey = "namespace"

// addNamespaceField 将命名空间字段追加到属性列表中。
func addNamespaceField(options *options, attrs []slog.Attr) []slog.Attr {
	if options == nil || len(options.namespaceParts) == 0 {
		return attrs
	}
	return append(attrs, slog.String(NamespaceKey, strings.Join(options.namespaceParts, ".")))
}
