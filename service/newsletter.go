package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BerniceZTT/leads_end/metrics"
	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
)

const (
	MsgSubscribed        = "Successfully subscribed to our newsletter!"
	MsgAlreadySubscribed = "You are already subscribed to our newsletter."
	MsgUnsubscribed      = "You have been unsubscribed from our newsletter."
)

// SubscribeOutcome 订阅结果
type SubscribeOutcome struct {
	ID                string
	AlreadySubscribed bool
}

// NewsletterService 邮件订阅，按规范化邮箱去重
type NewsletterService struct {
	store      Store
	classifier *Classifier
	timeout    time.Duration
	inflight   *Inflight
	now        func() time.Time
	logger     zerolog.Logger
}

// NewNewsletterService 创建订阅服务，timeout 用于独立调用
func NewNewsletterService(store Store, classifier *Classifier, timeout time.Duration, opts ...Option) *NewsletterService {
	o := buildOptions(opts)
	return &NewsletterService{
		store:      store,
		classifier: classifier,
		timeout:    timeout,
		inflight:   o.inflight,
		now:        o.now,
		logger:     o.logger,
	}
}

// SubscribeEmail 查询已有的有效订阅，不存在时创建。
// 查询与创建不是原子操作，并发提交同一邮箱可能产生重复记录。
func (s *NewsletterService) SubscribeEmail(ctx context.Context, req models.SubscribeRequest) (SubscribeOutcome, error) {
	if err := ValidateEmail(req.Email); err != nil {
		return SubscribeOutcome{}, err
	}
	email := NormalizeEmail(req.Email)

	existing, err := s.findActive(ctx, email, 1)
	if err != nil {
		return SubscribeOutcome{}, err
	}
	if len(existing) > 0 {
		return SubscribeOutcome{ID: existing[0].ID, AlreadySubscribed: true}, nil
	}

	subscriber := models.NewsletterSubscriber{
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Source:      withDefault(req.Source, models.DefaultSource),
		Preferences: models.DefaultNewsletterPreferences(),
		Active:      true,
	}
	doc, err := s.store.Create(ctx, repository.NewsletterCollection, subscriber)
	if err != nil {
		return SubscribeOutcome{}, err
	}
	return SubscribeOutcome{ID: doc.ID}, nil
}

// Subscribe 独立订阅入口，返回统一的提交结果
func (s *NewsletterService) Subscribe(ctx context.Context, req models.SubscribeRequest) models.SubmissionResult {
	outcome, err := WithTimeout(ctx, s.inflight, "newsletter subscribe", s.timeout, func(ctx context.Context) (SubscribeOutcome, error) {
		return s.SubscribeEmail(ctx, req)
	})
	if err != nil {
		return s.failure("subscribe", err)
	}
	metrics.RecordSubmission("newsletter_success")

	if outcome.AlreadySubscribed {
		return models.SubmissionResult{Success: true, AlreadySubscribed: true, Message: MsgAlreadySubscribed}
	}
	return models.SubmissionResult{Success: true, ID: outcome.ID, Message: MsgSubscribed}
}

// Unsubscribe 将该邮箱下所有有效订阅标记为失效
func (s *NewsletterService) Unsubscribe(ctx context.Context, req models.UnsubscribeRequest) models.SubmissionResult {
	_, err := WithTimeout(ctx, s.inflight, "newsletter unsubscribe", s.timeout, func(ctx context.Context) (int, error) {
		return s.unsubscribe(ctx, req.Email)
	})
	if err != nil {
		return s.failure("unsubscribe", err)
	}
	return models.SubmissionResult{Success: true, Message: MsgUnsubscribed}
}

func (s *NewsletterService) unsubscribe(ctx context.Context, rawEmail string) (int, error) {
	if err := ValidateEmail(rawEmail); err != nil {
		return 0, err
	}
	active, err := s.findActive(ctx, NormalizeEmail(rawEmail), repository.MaxPageSize)
	if err != nil {
		return 0, err
	}
	if len(active) == 0 {
		return 0, ErrNotSubscribed
	}

	now := s.now().UTC()
	for _, doc := range active {
		if _, err := s.store.Update(ctx, repository.NewsletterCollection, doc.ID, bson.M{
			"active":         false,
			"unsubscribedAt": now,
		}); err != nil {
			return 0, err
		}
	}
	return len(active), nil
}

func (s *NewsletterService) findActive(ctx context.Context, email string, limit int) ([]repository.Document, error) {
	page, err := s.store.QueryByField(ctx, repository.NewsletterCollection, "email", email, repository.QueryOptions{
		Limit:   limit,
		Filters: map[string]interface{}{"active": true},
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

func (s *NewsletterService) failure(op string, err error) models.SubmissionResult {
	classified := s.classifier.Classify(err)
	s.logger.Warn().
		Err(err).
		Str("operation", op).
		Str("category", string(classified.Category)).
		Msg("订阅操作失败")
	metrics.RecordSubmission("newsletter_" + string(classified.Category))
	return failureResult(classified)
}

func failureResult(c ClassifiedError) models.SubmissionResult {
	return models.SubmissionResult{
		Success:  false,
		Error:    c.Message,
		RawError: c.Raw,
		Category: string(c.Category),
	}
}
