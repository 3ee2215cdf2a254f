package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusTTL = 24 * time.Hour

// RedisRepo mirrors job status and progress so the read path can skip
// Postgres for hot jobs. The Postgres row stays authoritative.
type RedisRepo struct {
	Client *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{Client: client}
}

func (r *RedisRepo) SetStatus(ctx context.Context, jobID, status string, progress int) error {
	key := "job_status:" + jobID
	pipe := r.Client.TxPipeline()
	pipe.HSet(ctx, key, "status", status, "progress", progress)
	pipe.Expire(ctx, key, statusTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisRepo) GetStatus(ctx context.Context, jobID string) (string, int, error) {
	fields, err := r.Client.HGetAll(ctx, "job_status:"+jobID).Result()
	if err != nil {
		return "", 0, err
	}
	if len(fields) == 0 {
		return "", 0, redis.Nil
	}

	progress, _ := strconv.Atoi(fields["progress"])
	return fields["status"], progress, nil
}
