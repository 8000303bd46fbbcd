package metrics

import "github.com/ceyewan/itemscope/xerrors"

var (
	// ErrDuplicateMetric 同名指标已以不兼容的类型、标签或桶边界注册
	// 属于启动期错误，调用方应直接失败退出
	ErrDuplicateMetric = xerrors.New("metrics: duplicate metric")

	// ErrLabelMismatch 提供的标签集合与注册时声明的标签名不一致
	ErrLabelMismatch = xerrors.New("metrics: label mismatch")

	// ErrInvalidValue 计数器增量非正，或观测值不是有限数
	ErrInvalidValue = xerrors.New("metrics: invalid value")

	// ErrInvalidDesc 指标描述本身不合法（名称、标签名、桶边界）
	ErrInvalidDesc = xerrors.New("metrics: invalid descriptor")
)
