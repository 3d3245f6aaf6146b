// Package escalation forwards unresolved support cases to the people who
// handle them: an automation webhook or a message queue.
package escalation

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"appliance-warranty-backend/config"
)

// ApplianceInfo describes the escalated appliance and its warranty.
type ApplianceInfo struct {
	ApplianceID    string  `json:"applianceId"`
	ProductName    string  `json:"productName,omitempty"`
	Brand          string  `json:"brand,omitempty"`
	ModelNumber    string  `json:"modelNumber,omitempty"`
	PurchaseDate   *string `json:"purchaseDate"`
	WarrantyEnd    *string `json:"warrantyEnd"`
	WarrantyStatus string  `json:"warrantyStatus,omitempty"`
}

// Event is published once per escalation ticket.
type Event struct {
	TicketID       string         `json:"ticketId"`
	ConversationID string         `json:"conversationId"`
	UserID         string         `json:"userId"`
	Symptom        string         `json:"symptom"`
	TriedSolutions *string        `json:"triedSolutions"`
	AISummary      *string        `json:"aiSummary"`
	Appliance      *ApplianceInfo `json:"userProduct"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Publisher delivers escalation events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Name() string
}

// NopPublisher drops events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Name() string                         { return "none" }

// NewPublisher returns the publisher selected by cfg.Mode.
func NewPublisher(cfg config.EscalationConfig, log *zap.Logger) Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	switch strings.ToLower(cfg.Mode) {
	case "amqp":
		if cfg.AMQPURL != "" {
			return NewAMQPPublisher(cfg.AMQPURL, cfg.Queue)
		}
		log.Warn("escalation mode amqp without amqp_url, events will be dropped")
	case "webhook":
		if cfg.WebhookURL != "" {
			return NewWebhookPublisher(cfg.WebhookURL, 10*time.Second)
		}
		log.Warn("escalation mode webhook without webhook_url, events will be dropped")
	}
	return NopPublisher{}
}
