package item

import "github.com/ceyewan/itemscope/xerrors"

// ErrNotFound 条目不存在
var ErrNotFound = xerrors.New("item: not found")

// CodeStorage 持久化失败的错误码，随 c.Errors 交给访问日志
const CodeStorage = "ITEM_STORAGE"
