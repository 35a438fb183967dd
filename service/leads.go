package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/BerniceZTT/leads_end/config"
	"github.com/BerniceZTT/leads_end/metrics"
	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
)

const MsgLeadSaved = "Customer information saved successfully!"

// 辅助步骤名，用于日志与指标
const (
	StepNewsletter = "newsletter"
	StepEventLog   = "event_log"
	StepNotify     = "notify"
)

// LeadService 线索提交流程：校验 -> 主写入 -> 辅助步骤。
// 只有主写入决定提交结果，辅助步骤失败只记录日志。
type LeadService struct {
	store      Store
	newsletter *NewsletterService
	events     EventLogger
	notifier   Notifier
	classifier *Classifier
	timeouts   config.Timeouts
	inflight   *Inflight
	logger     zerolog.Logger
}

// NewLeadService 创建线索服务
func NewLeadService(store Store, newsletter *NewsletterService, events EventLogger, classifier *Classifier, timeouts config.Timeouts, opts ...Option) *LeadService {
	o := buildOptions(opts)
	return &LeadService{
		store:      store,
		newsletter: newsletter,
		events:     events,
		notifier:   o.notifier,
		classifier: classifier,
		timeouts:   timeouts,
		inflight:   o.inflight,
		logger:     o.logger,
	}
}

// Submit 提交线索表单
func (s *LeadService) Submit(ctx context.Context, payload models.LeadSubmission) models.SubmissionResult {
	if err := ValidateLeadSubmission(payload); err != nil {
		return s.fail(err)
	}
	record := NormalizeLeadSubmission(payload)

	doc, err := WithTimeout(ctx, s.inflight, "create lead", s.timeouts.Primary, func(ctx context.Context) (repository.Document, error) {
		return s.store.Create(ctx, repository.LeadsCollection, record)
	})
	if err != nil {
		return s.fail(err)
	}
	record.ID = doc.ID
	record.CreatedAt = doc.CreatedAt
	record.UpdatedAt = doc.UpdatedAt

	if record.Newsletter && s.newsletter != nil {
		s.auxiliary(ctx, StepNewsletter, s.timeouts.Newsletter, record.ID, func(ctx context.Context) error {
			_, err := s.newsletter.SubscribeEmail(ctx, models.SubscribeRequest{
				Email:     record.Email,
				FirstName: record.FirstName,
				LastName:  record.LastName,
				Source:    record.Source,
			})
			return err
		})
	}

	if s.events != nil {
		s.auxiliary(ctx, StepEventLog, s.timeouts.Event, record.ID, func(ctx context.Context) error {
			return s.events.LogEvent(ctx, EventLeadSubmitted, map[string]interface{}{
				"leadId":       record.ID,
				"source":       record.Source,
				"businessType": record.BusinessType,
				"newsletter":   record.Newsletter,
				"fuelTypes":    record.FuelTypes,
			})
		})
	}

	if s.notifier != nil {
		s.auxiliary(ctx, StepNotify, s.timeouts.Notify, record.ID, func(ctx context.Context) error {
			return s.notifier.LeadCreated(ctx, record)
		})
	}

	metrics.RecordSubmission("success")
	s.logger.Info().Str("leadId", record.ID).Str("source", record.Source).Msg("线索已保存")
	return models.SubmissionResult{Success: true, ID: record.ID, Message: MsgLeadSaved}
}

func (s *LeadService) fail(err error) models.SubmissionResult {
	classified := s.classifier.Classify(err)
	metrics.RecordSubmission(string(classified.Category))

	event := s.logger.Error()
	if classified.Category == CategoryInvalidArgument {
		event = s.logger.Info()
	}
	event.Err(err).Str("category", string(classified.Category)).Msg("线索提交失败")
	return failureResult(classified)
}

// auxiliary 执行辅助步骤，错误被吞掉
func (s *LeadService) auxiliary(ctx context.Context, step string, timeout time.Duration, leadID string, fn func(context.Context) error) {
	_, err := WithTimeout(ctx, s.inflight, step, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if err == nil {
		return
	}
	metrics.RecordAuxiliaryFailure(step)
	s.logger.Warn().
		Err(err).
		Str("step", step).
		Str("leadId", leadID).
		Msg("辅助步骤失败，已忽略")
}

// Classify 供 HTTP 层映射管理接口的错误
func (s *LeadService) Classify(err error) ClassifiedError {
	return s.classifier.Classify(err)
}

// GetByID 读取单条线索
func (s *LeadService) GetByID(ctx context.Context, id string) (models.LeadRecord, error) {
	doc, err := WithTimeout(ctx, s.inflight, "get lead", s.timeouts.Query, func(ctx context.Context) (repository.Document, error) {
		return s.store.GetByID(ctx, repository.LeadsCollection, id)
	})
	if err != nil {
		return models.LeadRecord{}, err
	}
	return decodeLead(doc)
}

// ListOptions 线索列表参数
type ListOptions struct {
	Status          models.LeadStatus
	Limit           int
	Cursor          string
	Direction       repository.SortDirection
	IncludeArchived bool
}

// ListPage 按状态分页列出线索，按创建时间排序
func (s *LeadService) ListPage(ctx context.Context, opts ListOptions) (models.LeadPage, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return models.LeadPage{}, &ValidationError{Field: "status", Message: MsgInvalidStatus}
	}

	query := repository.QueryOptions{
		Limit:     opts.Limit,
		OrderBy:   repository.FieldCreatedAt,
		Direction: opts.Direction,
		Cursor:    opts.Cursor,
	}
	if !opts.IncludeArchived {
		query.Filters = map[string]interface{}{"active": true}
	}
	field, value := "", interface{}(nil)
	if opts.Status != "" {
		field, value = "status", string(opts.Status)
	}

	page, err := WithTimeout(ctx, s.inflight, "list leads", s.timeouts.Query, func(ctx context.Context) (repository.Page, error) {
		return s.store.QueryByField(ctx, repository.LeadsCollection, field, value, query)
	})
	if err != nil {
		return models.LeadPage{}, err
	}

	leads := make([]models.LeadRecord, 0, len(page.Items))
	for _, doc := range page.Items {
		lead, err := decodeLead(doc)
		if err != nil {
			return models.LeadPage{}, err
		}
		leads = append(leads, lead)
	}
	return models.LeadPage{Leads: leads, NextCursor: page.NextCursor, HasMore: page.HasMore}, nil
}

// UpdateStatus 更新线索状态，这是状态唯一的变更入口
func (s *LeadService) UpdateStatus(ctx context.Context, id string, status models.LeadStatus) (models.LeadRecord, error) {
	if !status.Valid() {
		return models.LeadRecord{}, &ValidationError{Field: "status", Message: MsgInvalidStatus}
	}
	return s.update(ctx, "update lead status", id, bson.M{"status": string(status)})
}

// Archive 软删除
func (s *LeadService) Archive(ctx context.Context, id string) (models.LeadRecord, error) {
	return s.update(ctx, "archive lead", id, bson.M{"active": false})
}

// Delete 物理删除
func (s *LeadService) Delete(ctx context.Context, id string) error {
	_, err := WithTimeout(ctx, s.inflight, "delete lead", s.timeouts.Primary, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.Delete(ctx, repository.LeadsCollection, id)
	})
	return err
}

// LogAdminOperation 记录管理操作，失败只写日志
func (s *LeadService) LogAdminOperation(ctx context.Context, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.auxiliary(ctx, StepEventLog, s.timeouts.Event, "", func(ctx context.Context) error {
		return s.events.LogEvent(ctx, EventAdminOperation, payload)
	})
}

func (s *LeadService) update(ctx context.Context, op, id string, patch bson.M) (models.LeadRecord, error) {
	doc, err := WithTimeout(ctx, s.inflight, op, s.timeouts.Primary, func(ctx context.Context) (repository.Document, error) {
		return s.store.Update(ctx, repository.LeadsCollection, id, patch)
	})
	if err != nil {
		return models.LeadRecord{}, err
	}
	return decodeLead(doc)
}

func decodeLead(doc repository.Document) (models.LeadRecord, error) {
	var lead models.LeadRecord
	if err := doc.Decode(&lead); err != nil {
		return models.LeadRecord{}, err
	}
	lead.ID = doc.ID
	lead.CreatedAt = doc.CreatedAt
	lead.UpdatedAt = doc.UpdatedAt
	if lead.FuelTypes == nil {
		lead.FuelTypes = []string{}
	}
	return lead, nil
}
