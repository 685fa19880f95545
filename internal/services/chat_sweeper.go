package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/arman-d/ConsultLinkBack/internal/repository"
)

// ChatSweeper marks sessions completed once they outlive the channel
// lifetime, so the write-lock does not depend on a client asking.
type ChatSweeper struct {
	sessionRepo *repository.ChatSessionRepository
	interval    time.Duration
	logger      *slog.Logger
}

func NewChatSweeper(
	sessionRepo *repository.ChatSessionRepository,
	interval time.Duration,
	logger *slog.Logger,
) *ChatSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ChatSweeper{
		sessionRepo: sessionRepo,
		interval:    interval,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *ChatSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("chat sweeper started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("chat sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ChatSweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-sessionLifetime)
	swept, err := w.sessionRepo.CompleteOverdue(ctx, cutoff)
	if err != nil {
		w.logger.Error("chat sweeper pass failed", "error", err)
		return
	}
	if swept > 0 {
		w.logger.Info("chat sweeper pass", "sessions_completed", swept)
	}
}
