package item

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/ceyewan/itemscope/clog"
	"github.com/ceyewan/itemscope/db"
	"github.com/ceyewan/itemscope/trace"
	"github.com/ceyewan/itemscope/xerrors"
)

// Hooks 业务事件钩子，实现必须可并发调用且不阻塞
type Hooks interface {
	ItemCreated(ctx context.Context)
	ItemsRead(ctx context.Context, n int)
	ItemRead(ctx context.Context)
	ItemUpdated(ctx context.Context)
	ItemDeleted(ctx context.Context)
}

type noopHooks struct{}

func (noopHooks) ItemCreated(context.Context)    {}
func (noopHooks) ItemsRead(context.Context, int) {}
func (noopHooks) ItemRead(context.Context)       {}
func (noopHooks) ItemUpdated(context.Context)    {}
func (noopHooks) ItemDeleted(context.Context)    {}

// Option Service 选项
type Option func(*Service)

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.WithNamespace("item")
		}
	}
}

// WithHooks 注入业务事件钩子
func WithHooks(h Hooks) Option {
	return func(s *Service) {
		if h != nil {
			s.hooks = h
		}
	}
}

// Service 条目业务服务
type Service struct {
	db     db.DB
	hooks  Hooks
	logger clog.Logger
}

// NewService 创建条目服务
func NewService(database db.DB, opts ...Option) (*Service, error) {
	if database == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "db is required")
	}
	s := &Service{db: database, hooks: noopHooks{}, logger: clog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate 创建或更新 items 表
func (s *Service) Migrate(ctx context.Context) error {
	if err := s.db.DB(ctx).AutoMigrate(&Item{}); err != nil {
		return xerrors.Wrap(err, "migrate items")
	}
	return nil
}

// List 分页读取条目，按 ID 升序
func (s *Service) List(ctx context.Context, skip, limit int) (items []Item, err error) {
	ctx, span := trace.Start(ctx, trace.SpanNameItem("list"),
		attribute.Int(trace.AttrItemSkip, skip), attribute.Int(trace.AttrItemLimit, limit))
	defer func() { trace.End(span, err) }()

	items = make([]Item, 0)
	if err = s.db.DB(ctx).Order("id").Offset(skip).Limit(limit).Find(&items).Error; err != nil {
		s.logger.ErrorContext(ctx, "list items failed", clog.Error(err))
		return nil, xerrors.Wrap(err, "list items")
	}

	span.SetAttributes(attribute.Int(trace.AttrItemCount, len(items)))
	s.hooks.ItemsRead(ctx, len(items))
	return items, nil
}

// Get 按 ID 读取条目，不存在时返回 ErrNotFound
func (s *Service) Get(ctx context.Context, id uint) (_ *Item, err error) {
	ctx, span := trace.Start(ctx, trace.SpanNameItem("get"), attribute.Int64(trace.AttrItemID, int64(id)))
	defer func() { trace.End(span, notFoundIsOK(err)) }()

	var it Item
	if err = s.db.DB(ctx).First(&it, id).Error; err != nil {
		return nil, s.lookupError(ctx, id, err)
	}

	s.hooks.ItemRead(ctx)
	return &it, nil
}

// Create 创建条目
func (s *Service) Create(ctx context.Context, in CreateInput) (_ *Item, err error) {
	ctx, span := trace.Start(ctx, trace.SpanNameItem("create"))
	defer func() { trace.End(span, err) }()

	it := Item{Name: in.Name}
	if in.Price != nil {
		it.Price = *in.Price
	}
	err = s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return tx.Create(&it).Error
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist new item", clog.Error(err))
		return nil, xerrors.Wrap(err, "create item")
	}

	span.SetAttributes(attribute.Int64(trace.AttrItemID, int64(it.ID)))
	s.logger.InfoContext(ctx, "item created", clog.Int64("id", int64(it.ID)), clog.String("name", it.Name))
	s.hooks.ItemCreated(ctx)
	return &it, nil
}

// Update 部分更新条目，只写入 in 中提供的字段
func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (_ *Item, err error) {
	ctx, span := trace.Start(ctx, trace.SpanNameItem("update"), attribute.Int64(trace.AttrItemID, int64(id)))
	defer func() { trace.End(span, notFoundIsOK(err)) }()

	var it Item
	err = s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.First(&it, id).Error; err != nil {
			return err
		}
		cols := in.columns()
		if len(cols) == 0 {
			return nil
		}
		return tx.Model(&it).Updates(cols).Error
	})
	if err != nil {
		return nil, s.lookupError(ctx, id, err)
	}

	s.logger.InfoContext(ctx, "item updated", clog.Int64("id", int64(id)))
	s.hooks.ItemUpdated(ctx)
	return &it, nil
}

// Delete 删除条目，不存在时返回 ErrNotFound
func (s *Service) Delete(ctx context.Context, id uint) (err error) {
	ctx, span := trace.Start(ctx, trace.SpanNameItem("delete"), attribute.Int64(trace.AttrItemID, int64(id)))
	defer func() { trace.End(span, notFoundIsOK(err)) }()

	err = s.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		res := tx.Delete(&Item{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return s.lookupError(ctx, id, err)
	}

	s.logger.InfoContext(ctx, "item deleted", clog.Int64("id", int64(id)))
	s.hooks.ItemDeleted(ctx)
	return nil
}

// lookupError 将记录不存在转换为 ErrNotFound，其余错误记录日志后包装返回
func (s *Service) lookupError(ctx context.Context, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return xerrors.Wrapf(ErrNotFound, "id %d", id)
	}
	s.logger.ErrorContext(ctx, "item operation failed", clog.Int64("id", int64(id)), clog.Error(err))
	return xerrors.Wrapf(err, "item %d", id)
}

// notFoundIsOK 条目不存在属于正常业务结果，不标记 Span 为错误
func notFoundIsOK(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
