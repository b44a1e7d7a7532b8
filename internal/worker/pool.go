// Package worker runs queued orchestration rounds in the background.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Victoriakaey/troubador2/internal/core/domain"
	"github.com/Victoriakaey/troubador2/internal/logging"
)

// Player runs and persists one round for a session.
type Player interface {
	Play(ctx context.Context, sessionID, gameState string) (domain.Round, error)
}

// Job is a queued game state update for a session.
type Job struct {
	SessionID string
	GameState string
}

// Pool manages background workers for async rounds. With a single worker,
// rounds run in submission order.
type Pool struct {
	player Player
	jobs   chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given queue size.
func NewPool(player Player, queueSize int, logger *slog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		player: player,
		jobs:   make(chan Job, queueSize),
		logger: logging.OrDiscard(logger),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. It reports false when the queue is
// full or the pool has stopped; the job is dropped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("worker: pool stopped, dropping job", "session_id", job.SessionID)
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("worker: queue full, dropping job", "session_id", job.SessionID)
		return false
	}
}

func (p *Pool) processJob(job Job) {
	round, err := p.player.Play(context.Background(), job.SessionID, job.GameState)
	if err != nil {
		p.logger.Warn("worker: round failed", "session_id", job.SessionID, "error", err)
		return
	}
	p.logger.Info("worker: round processed", "session_id", job.SessionID, "round_id", round.ID)
}
