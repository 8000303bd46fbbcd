package db

import "github.com/ceyewan/itemscope/xerrors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("db: invalid config")

	// ErrConnectorRequired 连接器未提供或尚未连接
	ErrConnectorRequired = xerrors.New("db: connected sql connector is required")
)
