package metrics

// Label 指标标签，一个维度名称及其取值
//
// 标签集合是序列身份的一部分：同一指标下，不同的标签取值组合对应不同的时间序列。
// 标签值应保持低基数，避免使用用户 ID、请求 ID、原始 URL Path 等作为取值。
//
// 使用示例：
//
//	counter.Inc(ctx, metrics.L("method", "GET"), metrics.L("route", "/items/:id"))
type Label struct {
	// Key 标签名，必须在注册指标时通过 WithLabels 声明
	Key string

	// Value 标签值，任意合法的 UTF-8 字符串
	Value string
}

// L 便捷构造函数，创建一个 Label 实例
func L(key, value string) Label {
	return Label{
		Key:   key,
		Value: value,
	}
}
