package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/BerniceZTT/leads_end/models"
)

// LeadCreatedPayload 新线索消息体
type LeadCreatedPayload struct {
	Event        string    `json:"event"`
	LeadID       string    `json:"lead_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	CompanyName  string    `json:"company_name,omitempty"`
	BusinessType string    `json:"business_type"`
	FuelTypes    []string  `json:"fuel_types"`
	Parish       string    `json:"parish,omitempty"`
	Source       string    `json:"source"`
	CreatedAt    time.Time `json:"created_at"`
}

// Channel amqp.Channel 中用到的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 将新线索发布到 RabbitMQ
type Publisher struct {
	ch      Channel
	closers []func() error
}

func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

// LeadCreated 发布 lead.created 消息
func (p *Publisher) LeadCreated(ctx context.Context, lead models.LeadRecord) error {
	payload := LeadCreatedPayload{
		Event:        "lead.created",
		LeadID:       lead.ID,
		Name:         lead.FirstName + " " + lead.LastName,
		Email:        lead.Email,
		Phone:        lead.Phone,
		CompanyName:  lead.CompanyName,
		BusinessType: lead.BusinessType,
		FuelTypes:    lead.FuelTypes,
		Parish:       lead.Parish,
		Source:       lead.Source,
		CreatedAt:    lead.CreatedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    lead.ID,
			Timestamp:    time.Now(),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("发布到RabbitMQ失败: %w", err)
	}
	return nil
}

// Close 关闭通道与连接
func (p *Publisher) Close() error {
	var first error
	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
