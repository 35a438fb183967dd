package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
)

const (
	EventSinkStore = "store"
	EventSinkLocal = "local"

	EventLeadSubmitted  = "lead.submitted"
	EventAdminOperation = "admin.operation"
)

type clientContextKey struct{}

// WithClientContext 将请求来源附加到 ctx，事件日志会读取它
func WithClientContext(ctx context.Context, client models.ClientContext) context.Context {
	return context.WithValue(ctx, clientContextKey{}, client)
}

// ClientFromContext 读取请求来源，不存在时返回零值
func ClientFromContext(ctx context.Context) models.ClientContext {
	client, _ := ctx.Value(clientContextKey{}).(models.ClientContext)
	return client
}

// StoreEventLogger 将事件写入 event_logs 集合
type StoreEventLogger struct {
	store Store
}

func NewStoreEventLogger(store Store) *StoreEventLogger {
	return &StoreEventLogger{store: store}
}

// LogEvent 追加一条事件
func (l *StoreEventLogger) LogEvent(ctx context.Context, event string, payload map[string]interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	entry := models.EventLogEntry{
		Event:   event,
		Payload: payload,
		Client:  ClientFromContext(ctx),
	}
	_, err := l.store.Create(ctx, repository.EventLogsCollection, entry)
	return err
}

// LocalEventLogger 非生产环境下只写本地日志
type LocalEventLogger struct {
	logger zerolog.Logger
}

func NewLocalEventLogger(logger zerolog.Logger) *LocalEventLogger {
	return &LocalEventLogger{logger: logger}
}

func (l *LocalEventLogger) LogEvent(ctx context.Context, event string, payload map[string]interface{}) error {
	client := ClientFromContext(ctx)
	l.logger.Info().
		Str("event", event).
		Str("requestId", client.RequestID).
		Interface("payload", payload).
		Msg("事件记录")
	return nil
}

// NewEventLogger 按配置选择事件落地方式
func NewEventLogger(sink string, store Store, logger zerolog.Logger) EventLogger {
	if sink == EventSinkStore {
		return NewStoreEventLogger(store)
	}
	return NewLocalEventLogger(logger)
}
