package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fortuna/athena/internal/stats"
)

// SeasonStream receives one entry per recomputed season.
const SeasonStream = "efficiency.seasons.basketball_nba"

// defaultMaxLen bounds the stream; trimming is approximate.
const defaultMaxLen = 1000

// SeasonUpdate is the payload of a SeasonStream entry.
type SeasonUpdate struct {
	Season     string                  `json:"season"`
	Year       int                     `json:"year"`
	SeasonType stats.SeasonType        `json:"season_type"`
	Mode       stats.Mode              `json:"mode"`
	Rows       []stats.PlayerSeasonRow `json:"rows"`
	ComputedAt time.Time               `json:"computed_at"`
}

// streamAdder is the slice of the redis client the publisher uses.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client streamAdder
	maxLen int64
	now    func() time.Time
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return newPublisher(client)
}

func newPublisher(client streamAdder) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		maxLen: defaultMaxLen,
		now:    time.Now,
	}
}

// PublishSeason appends a recomputed season table to SeasonStream and
// returns the entry ID.
func (p *RedisStreamPublisher) PublishSeason(ctx context.Context, update SeasonUpdate) (string, error) {
	if update.ComputedAt.IsZero() {
		update.ComputedAt = p.now().UTC()
	}

	data, err := json.Marshal(update)
	if err != nil {
		return "", fmt.Errorf("encoding season update: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: SeasonStream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"season":      update.Season,
			"season_type": string(update.SeasonType),
			"mode":        string(update.Mode),
			"data":        string(data),
			"timestamp":   update.ComputedAt.Unix(),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publishing %s %s: %w", update.Season, update.SeasonType, err)
	}
	return id, nil
}
