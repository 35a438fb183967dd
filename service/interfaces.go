package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
)

// Store 文档存储，由 repository.Gateway 与 repository.MemoryStore 实现
type Store interface {
	Create(ctx context.Context, collection string, doc interface{}) (repository.Document, error)
	GetByID(ctx context.Context, collection, id string) (repository.Document, error)
	Update(ctx context.Context, collection, id string, patch interface{}) (repository.Document, error)
	Delete(ctx context.Context, collection, id string) error
	QueryByField(ctx context.Context, collection, field string, value interface{}, opts repository.QueryOptions) (repository.Page, error)
}

// NetworkProbe 网络连通性探测
type NetworkProbe interface {
	IsOnline() bool
}

// EventLogger 诊断事件记录
type EventLogger interface {
	LogEvent(ctx context.Context, event string, payload map[string]interface{}) error
}

// Notifier 新线索通知（销售团队）
type Notifier interface {
	LeadCreated(ctx context.Context, lead models.LeadRecord) error
}

// Option 服务构造选项
type Option func(*options)

type options struct {
	logger   zerolog.Logger
	inflight *Inflight
	notifier Notifier
	now      func() time.Time
}

// WithLogger 设置诊断日志
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInflight 登记超时后仍在执行的操作，供优雅关闭时等待
func WithInflight(inflight *Inflight) Option {
	return func(o *options) { o.inflight = inflight }
}

// WithNotifier 设置新线索通知
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
