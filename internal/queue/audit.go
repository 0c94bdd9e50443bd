// Package queue defines the background tasks exchanged over Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

const (
	// AuditUploadTask is scheduled after each committed upload batch.
	AuditUploadTask = "upload:audit"
)

// AuditPayload lists the objects of one batch so the worker can confirm they
// are still in storage.
type AuditPayload struct {
	EventID string            `json:"event_id"`
	Objects []model.ObjectRef `json:"objects"`
}

// NewAuditTask builds the task for one batch.
func NewAuditTask(payload AuditPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(AuditUploadTask, data, asynq.MaxRetry(5)), nil
}

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher enqueues audit tasks.
type Publisher struct {
	client Enqueuer
}

// NewPublisher wraps an asynq client.
func NewPublisher(client Enqueuer) *Publisher {
	return &Publisher{client: client}
}

// PublishAudit enqueues one audit task for refs.
func (p *Publisher) PublishAudit(ctx context.Context, eventID string, refs []model.ObjectRef) error {
	task, err := NewAuditTask(AuditPayload{EventID: eventID, Objects: refs})
	if err != nil {
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue audit task: %w", err)
	}
	return nil
}
