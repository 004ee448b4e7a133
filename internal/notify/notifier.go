// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
)

// Publisher is satisfied by the shared SNS client; the topic is the
// publisher's concern.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// SNSNotifier publishes a message when a job reaches a terminal state so
// downstream consumers (imports UI, reporting) can react without polling.
type SNSNotifier struct {
	publisher Publisher
	logger    logger.Logger
}

func NewSNSNotifier(publisher Publisher, log logger.Logger) *SNSNotifier {
	return &SNSNotifier{
		publisher: publisher,
		logger:    log,
	}
}

type jobFinishedMessage struct {
	JobID     string           `json:"jobId"`
	Status    models.JobStatus `json:"status"`
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Error     string           `json:"error,omitempty"`
}

func (n *SNSNotifier) JobFinished(ctx context.Context, job *models.MatcherJob) error {
	payload, err := json.Marshal(jobFinishedMessage{
		JobID:     job.ID,
		Status:    job.Status,
		Processed: job.Progress.Processed,
		Total:     job.Progress.Total,
		Error:     job.Error,
	})
	if err != nil {
		return fmt.Errorf("marshal job notification: %w", err)
	}

	subject := fmt.Sprintf("Match job %s %s", job.ID, job.Status)
	if err := n.publisher.Publish(ctx, subject, string(payload)); err != nil {
		return fmt.Errorf("publish job notification: %w", err)
	}

	n.logger.Info("Published job notification", map[string]interface{}{
		"jobId":  job.ID,
		"status": string(job.Status),
	})
	return nil
}
