// Package events publishes record-updated notifications to a Redis stream so
// downstream consumers (defect dashboards, reporting) can follow writes
// without polling the KV keys. Publishing is best-effort: a failed publish is
// logged and never fails the submission.
package events

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RecordUpdated is the payload of one stream entry.
type RecordUpdated struct {
	WeekKey        string
	EquipmentType  string
	PlantID        string
	WeekCommencing string
	Date           string // the submitted day
}

// Publisher writes record-updated events to one stream.
type Publisher struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

func NewPublisher(client *redis.Client, stream string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, stream: stream, logger: logger}
}

// Publish appends the event to the stream.
func (p *Publisher) Publish(ctx context.Context, ev RecordUpdated) error {
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"week_key":        ev.WeekKey,
			"equipment_type":  ev.EquipmentType,
			"plant_id":        ev.PlantID,
			"week_commencing": ev.WeekCommencing,
			"date":            ev.Date,
		},
	}).Result()
	if err != nil {
		return err
	}

	p.logger.Debug("Published record-updated event",
		zap.String("stream", p.stream),
		zap.String("id", id),
		zap.String("week_key", ev.WeekKey),
	)
	return nil
}
