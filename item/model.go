// Package item 实现条目（Item）的 CRUD：GORM 模型、业务服务与 Gin 处理器。
//
// 业务钩子只在事务提交成功后调用，失败的写操作不会计入业务计数器。
package item

// Item 条目模型，JSON 字段名沿用对外 API 的 nom/prix
type Item struct {
	ID    uint    `gorm:"primaryKey" json:"id"`
	Name  string  `gorm:"column:nom;index;not null" json:"nom"`
	Price float64 `gorm:"column:prix;not null" json:"prix"`
}

// TableName 表名
func (Item) TableName() string {
	return "items"
}

// CreateInput 创建条目的请求体
type CreateInput struct {
	Name  string   `json:"nom" binding:"required"`
	Price *float64 `json:"prix" binding:"required"`
}

// UpdateInput 部分更新的请求体，只有非 nil 字段会被写入
type UpdateInput struct {
	Name  *string  `json:"nom"`
	Price *float64 `json:"prix"`
}

// columns 返回需要更新的列
func (in UpdateInput) columns() map[string]any {
	cols := make(map[string]any, 2)
	if in.Name != nil {
		cols["nom"] = *in.Name
	}
	if in.Price != nil {
		cols["prix"] = *in.Price
	}
	return cols
}
