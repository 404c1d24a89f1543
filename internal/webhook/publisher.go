package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/geo_incident_system/internal/models"
)

const (
	webhookQueueKey = "incident_events"
)

const (
	EventIncidentCreated  = "incident.created"
	EventIncidentExtended = "incident.extended"
)

// IncidentEvent - событие жизненного цикла инцидента для внешних подписчиков
type IncidentEvent struct {
	Type      string           `json:"type"`
	ReportID  uuid.UUID        `json:"report_id"`
	Incident  *models.Incident `json:"incident"`
	Timestamp time.Time        `json:"timestamp"`
}

// WebhookPublisher - интерфейс для публикации событий инцидентов
type WebhookPublisher interface {
	Publish(ctx context.Context, event IncidentEvent) error
}

// RedisWebhookPublisher - реализация WebhookPublisher поверх списка Redis
type RedisWebhookPublisher struct {
	redisClient *redis.Client
}

func NewRedisWebhookPublisher(client *redis.Client) *RedisWebhookPublisher {
	return &RedisWebhookPublisher{
		redisClient: client,
	}
}

// Publish кладет событие в левую часть очереди; воркер забирает справа
func (p *RedisWebhookPublisher) Publish(ctx context.Context, event IncidentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal incident event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, webhookQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish incident event to Redis: %w", err)
	}
	return nil
}
