// internal/queue/redis.go
package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/models"

	"github.com/redis/go-redis/v9"
)

// Claim pops the oldest waiting id, leases it and bumps its attempt counter.
// KEYS: waiting, active, attempts. ARGV: lease deadline (unix ms).
var claimScript = redis.NewScript(`
local id = redis.call('RPOP', KEYS[1])
if not id then
	return false
end
redis.call('ZADD', KEYS[2], ARGV[1], id)
local attempt = redis.call('HINCRBY', KEYS[3], id, 1)
return {id, attempt}
`)

// Move moves up to ARGV[2] members of a sorted set whose score is <= ARGV[1]
// onto the waiting list. Used to promote delayed retries and to requeue
// expired leases. ARGV[3] selects the list end: "head" puts them next in line.
// KEYS: source zset, waiting.
var moveScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	if ARGV[3] == 'head' then
		redis.call('RPUSH', KEYS[2], id)
	else
		redis.call('LPUSH', KEYS[2], id)
	end
end
return #ids
`)

// Settle releases a lease. ARGV[2] is the mode: "retry" schedules the id at
// ARGV[3], "release" puts it back next in line and gives the attempt back,
// anything else drops its attempt counter.
// KEYS: active, delayed, attempts, waiting. ARGV: id, mode, retry-at (unix ms).
var settleScript = redis.NewScript(`
if redis.call('ZREM', KEYS[1], ARGV[1]) == 0 then
	return 0
end
if ARGV[2] == 'retry' then
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
elseif ARGV[2] == 'release' then
	redis.call('RPUSH', KEYS[4], ARGV[1])
	if redis.call('HINCRBY', KEYS[3], ARGV[1], -1) <= 0 then
		redis.call('HDEL', KEYS[3], ARGV[1])
	end
else
	redis.call('HDEL', KEYS[3], ARGV[1])
end
return 1
`)

type RedisBrokerConfig struct {
	Prefix       string
	PollInterval time.Duration
	LeaseTimeout time.Duration
	ReapInterval time.Duration
	JobTimeouts  map[models.JobType]time.Duration
}

// RedisBroker keeps, per job type, a waiting list, a delayed sorted set
// (score = ready time) and an active sorted set (score = lease deadline).
type RedisBroker struct {
	client redis.UniversalClient
	cfg    RedisBrokerConfig
	logger logger.Logger
	now    func() time.Time
}

func NewRedisBroker(client redis.UniversalClient, cfg RedisBrokerConfig, log logger.Logger) *RedisBroker {
	if cfg.Prefix == "" {
		cfg.Prefix = "cvq"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.LeaseTimeout <= 0 {
		cfg.LeaseTimeout = 5 * time.Minute
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = 15 * time.Second
	}
	return &RedisBroker{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "redis-broker"}),
		now:    time.Now,
	}
}

type queueKeys struct {
	waiting, delayed, active, attempts string
}

func (b *RedisBroker) keys(jobType models.JobType) queueKeys {
	base := fmt.Sprintf("%s:%s", b.cfg.Prefix, jobType)
	return queueKeys{
		waiting:  base + ":waiting",
		delayed:  base + ":delayed",
		active:   base + ":active",
		attempts: base + ":attempts",
	}
}

func (b *RedisBroker) Enqueue(ctx context.Context, jobType models.JobType, jobID string) error {
	if err := b.client.LPush(ctx, b.keys(jobType).waiting, jobID).Err(); err != nil {
		return apperrors.NewQueueUnavailableError(err)
	}
	return nil
}

func (b *RedisBroker) Depth(ctx context.Context, jobType models.JobType) (int64, error) {
	k := b.keys(jobType)
	pipe := b.client.Pipeline()
	waiting := pipe.LLen(ctx, k.waiting)
	delayed := pipe.ZCard(ctx, k.delayed)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperrors.NewQueueUnavailableError(err)
	}
	return waiting.Val() + delayed.Val(), nil
}

// Consume runs the pool plus a maintenance loop that promotes due retries and
// requeues deliveries whose lease expired.
func (b *RedisBroker) Consume(ctx context.Context, jobType models.JobType, concurrency int, h Handler) error {
	src := &redisSource{broker: b, jobType: jobType, keys: b.keys(jobType)}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.maintain(ctx, src)
	}()

	pool := NewPool(string(jobType), PoolConfig{
		Size:         concurrency,
		PollInterval: b.cfg.PollInterval,
		JobTimeout:   b.cfg.JobTimeouts[jobType],
		LeaseTimeout: b.cfg.LeaseTimeout,
	}, b.logger)
	err := pool.Run(ctx, src, h)

	wg.Wait()
	return err
}

func (b *RedisBroker) maintain(ctx context.Context, src *redisSource) {
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	lastReap := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := b.promote(ctx, src.keys); err != nil && ctx.Err() == nil {
			b.logger.Warn("Promote failed", map[string]interface{}{"jobType": src.jobType, "error": err.Error()})
		}
		if time.Since(lastReap) >= b.cfg.ReapInterval {
			lastReap = time.Now()
			if n, err := b.reap(ctx, src.keys); err != nil && ctx.Err() == nil {
				b.logger.Warn("Reap failed", map[string]interface{}{"jobType": src.jobType, "error": err.Error()})
			} else if n > 0 {
				b.logger.Warn("Requeued deliveries with expired leases", map[string]interface{}{"jobType": src.jobType, "count": n})
			}
		}
		if depth, err := b.Depth(ctx, src.jobType); err == nil {
			metrics.QueueDepth.WithLabelValues(string(src.jobType)).Set(float64(depth))
		}
	}
}

const moveBatch = 100

func (b *RedisBroker) promote(ctx context.Context, k queueKeys) (int64, error) {
	return moveScript.Run(ctx, b.client, []string{k.delayed, k.waiting}, b.now().UnixMilli(), moveBatch, "tail").Int64()
}

func (b *RedisBroker) reap(ctx context.Context, k queueKeys) (int64, error) {
	return moveScript.Run(ctx, b.client, []string{k.active, k.waiting}, b.now().UnixMilli(), moveBatch, "head").Int64()
}

func (b *RedisBroker) Close() error { return nil }

type redisSource struct {
	broker  *RedisBroker
	jobType models.JobType
	keys    queueKeys
}

func (s *redisSource) claim(ctx context.Context) (*Delivery, error) {
	b := s.broker
	deadline := b.now().Add(b.cfg.LeaseTimeout).UnixMilli()
	res, err := claimScript.Run(ctx, b.client, []string{s.keys.waiting, s.keys.active, s.keys.attempts}, deadline).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, apperrors.NewQueueUnavailableError(err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected claim reply %v", res)
	}

	id, _ := res[0].(string)
	attempt, err := toInt(res[1])
	if err != nil {
		return nil, err
	}
	return &Delivery{JobID: id, JobType: s.jobType, Attempt: attempt}, nil
}

func (s *redisSource) extend(ctx context.Context, d Delivery) error {
	b := s.broker
	deadline := float64(b.now().Add(b.cfg.LeaseTimeout).UnixMilli())
	return b.client.ZAddXX(ctx, s.keys.active, redis.Z{Score: deadline, Member: d.JobID}).Err()
}

func (s *redisSource) settle(ctx context.Context, d Delivery, o Outcome) error {
	b := s.broker
	mode, retryAt := "done", ""
	switch o.Decision {
	case Retry:
		mode = "retry"
		retryAt = strconv.FormatInt(b.now().Add(o.Delay).UnixMilli(), 10)
	case Release:
		mode = "release"
	}
	keys := []string{s.keys.active, s.keys.delayed, s.keys.attempts, s.keys.waiting}
	n, err := settleScript.Run(ctx, b.client, keys, d.JobID, mode, retryAt).Int64()
	if err != nil {
		return apperrors.NewQueueUnavailableError(err)
	}
	if n == 0 {
		// lease expired and the reaper handed the job to someone else
		b.logger.Warn("Settled delivery had lost its lease", map[string]interface{}{"jobId": d.JobID, "attempt": d.Attempt})
	}
	return nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unexpected attempt type %T", v)
	}
}
