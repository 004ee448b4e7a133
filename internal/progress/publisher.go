// internal/progress/publisher.go
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"product-matcher/internal/common/database"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
)

// ChannelPrefix is the pub/sub namespace; the job ID is appended per job so
// subscribers can watch a single job without filtering.
const ChannelPrefix = "matcher:progress:"

// Publisher fans per-row progress out over Redis pub/sub. Messages are
// fire-and-forget; a dropped update is recovered by the next row or by
// polling the job record.
type Publisher struct {
	redis  *database.RedisClient
	logger logger.Logger
}

func NewPublisher(redis *database.RedisClient, log logger.Logger) *Publisher {
	return &Publisher{
		redis:  redis,
		logger: log,
	}
}

type progressMessage struct {
	JobID     string `json:"jobId"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

func (p *Publisher) PublishProgress(ctx context.Context, jobID string, progress models.Progress) error {
	payload, err := json.Marshal(progressMessage{
		JobID:     jobID,
		Processed: progress.Processed,
		Total:     progress.Total,
	})
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	channel := ChannelPrefix + jobID
	if err := p.redis.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("publish progress to %s: %w", channel, err)
	}

	p.logger.Debug("Published job progress", map[string]interface{}{
		"jobId":     jobID,
		"processed": progress.Processed,
		"total":     progress.Total,
	})
	return nil
}
