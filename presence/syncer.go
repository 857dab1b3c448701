package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Syncer runs upserts in the background. Failures are logged and never
// reach the caller.
type Syncer struct {
	client  Client
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewSyncer(client Client, timeout time.Duration, logger *slog.Logger) *Syncer {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, timeout: timeout, logger: logger}
}

func (s *Syncer) Client() Client { return s.client }

func (s *Syncer) Sync(id Identity) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.client.UpsertUser(ctx, id); err != nil {
			s.logger.Warn("presence upsert failed", "user_id", id.ID, "error", err)
			return
		}
		s.logger.Debug("presence upsert done", "user_id", id.ID)
	}()
}

// Wait blocks until in-flight upserts finish or ctx is done.
func (s *Syncer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
