// Package notify broadcasts schedule changes so connected clients can refresh
// module visibility without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

type EventType string

const (
	ScheduleUpserted EventType = "schedule.upserted"
	ScheduleDeleted  EventType = "schedule.deleted"
)

type ScheduleEvent struct {
	Type       EventType `json:"type"`
	CohortID   string    `json:"cohortId"`
	ModuleID   uint      `json:"moduleId"`
	UnlockDate string    `json:"unlockDate,omitempty"`
	LockDate   *string   `json:"lockDate,omitempty"`
}

// Channel is the pub/sub channel for one cohort.
func Channel(cohortID string) string {
	return fmt.Sprintf("cohort:%s:schedule", cohortID)
}

type Publisher interface {
	PublishSchedule(ctx context.Context, event ScheduleEvent) error
}

type RedisPublisher struct {
	Redis *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{Redis: rdb}
}

func (p *RedisPublisher) PublishSchedule(ctx context.Context, event ScheduleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.Redis.Publish(ctx, Channel(event.CohortID), payload).Err()
}

// Subscribe streams decoded events for a cohort until ctx is done.
func (p *RedisPublisher) Subscribe(ctx context.Context, cohortID string) (<-chan ScheduleEvent, error) {
	pubsub := p.Redis.Subscribe(ctx, Channel(cohortID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan ScheduleEvent)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event ScheduleEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NopPublisher drops events; used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSchedule(context.Context, ScheduleEvent) error { return nil }
