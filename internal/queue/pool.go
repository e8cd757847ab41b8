// internal/queue/pool.go
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
)

// source is the pull side of a broker.
type source interface {
	claim(ctx context.Context) (*Delivery, error)
	extend(ctx context.Context, d Delivery) error
	settle(ctx context.Context, d Delivery, o Outcome) error
}

type PoolConfig struct {
	Size         int
	PollInterval time.Duration
	JobTimeout   time.Duration // bounds one attempt; zero means no bound
	LeaseTimeout time.Duration // heartbeat runs at a third of it
}

// Pool runs a fixed number of workers that claim deliveries from a source.
type Pool struct {
	name   string
	cfg    PoolConfig
	logger logger.Logger
}

func NewPool(name string, cfg PoolConfig, log logger.Logger) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Pool{
		name:   name,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "pool", "jobType": name}),
	}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (p *Pool) Run(ctx context.Context, src source, h Handler) error {
	p.logger.Info("Worker pool started", map[string]interface{}{"size": p.cfg.Size})

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Size; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.work(ctx, worker, src, h)
		}(i)
	}
	wg.Wait()

	p.logger.Info("Worker pool stopped", nil)
	return ctx.Err()
}

func (p *Pool) work(ctx context.Context, worker int, src source, h Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		d, err := src.claim(ctx)
		if err != nil {
			if !errors.Is(err, ErrEmpty) && ctx.Err() == nil {
				p.logger.Warn("Claim failed", map[string]interface{}{"worker": worker, "error": err.Error()})
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.PollInterval):
			}
			continue
		}

		p.process(ctx, src, h, *d)
	}
}

func (p *Pool) process(ctx context.Context, src source, h Handler, d Delivery) {
	gauge := metrics.JobsActive.WithLabelValues(p.name)
	gauge.Inc()
	defer gauge.Dec()

	jobCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.JobTimeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
	}
	defer cancel()

	stopHeartbeat := p.heartbeat(jobCtx, src, d)
	outcome := h(jobCtx, d)
	stopHeartbeat()

	// settle even when shutting down so the lease is released promptly
	settleCtx, settleCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer settleCancel()
	if err := src.settle(settleCtx, d, outcome); err != nil {
		p.logger.Error("Failed to settle delivery", map[string]interface{}{
			"jobId":    d.JobID,
			"attempt":  d.Attempt,
			"decision": outcome.Decision.String(),
			"error":    err.Error(),
		})
	}
}

func (p *Pool) heartbeat(ctx context.Context, src source, d Delivery) func() {
	if p.cfg.LeaseTimeout <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(p.cfg.LeaseTimeout / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := src.extend(ctx, d); err != nil {
					p.logger.Warn("Lease extension failed", map[string]interface{}{"jobId": d.JobID, "error": err.Error()})
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}
