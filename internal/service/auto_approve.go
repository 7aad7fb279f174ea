package service

import (
	"context"
	"time"

	"github.com/ignatzorin/prolink-backend/internal/logger"
	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

// AutoApproveSweeper периодически подтверждает работы, по которым клиент не
// ответил до истечения срока. Каждая заявка проходит через тот же
// оркестраторский approve, что и ручное подтверждение, поэтому guard-условия
// действуют одинаково: заявка, успевшая смениться (доработка, спор),
// пропускается.
type AutoApproveSweeper struct {
	svc      *EngagementService
	interval time.Duration
}

// NewAutoApproveSweeper создаёт фоновый обработчик автоподтверждений.
func NewAutoApproveSweeper(svc *EngagementService, interval time.Duration) *AutoApproveSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AutoApproveSweeper{svc: svc, interval: interval}
}

// Run крутит цикл до отмены контекста.
func (s *AutoApproveSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep выполняет один проход по просроченным заявкам.
func (s *AutoApproveSweeper) Sweep(ctx context.Context) {
	ids, err := s.svc.ListAutoApprovable(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("не удалось получить заявки для автоподтверждения")
		return
	}

	for _, id := range ids {
		if _, _, err := s.svc.AutoApprove(ctx, id); err != nil {
			// Заявка могла измениться между выборкой и блокировкой.
			if apperror.IsInvalidTransition(err) {
				continue
			}
			logger.Log.WithError(err).WithField("request_id", id).
				Warn("автоподтверждение не выполнено")
			continue
		}
		logger.Log.WithField("request_id", id).Info("работа подтверждена автоматически")
	}
}
