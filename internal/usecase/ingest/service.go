package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
)

// Service принимает сырые события в инбокс.
// Здесь нет разбора полезной нагрузки: приём остаётся быстрым и доступным,
// даже если логика обработки сломана.
type Service struct {
	inbox domain.UpdateInbox
	queue domain.UpdateQueue
	log   zerolog.Logger
}

// NewService создаёт сервис приёма.
func NewService(inbox domain.UpdateInbox, queue domain.UpdateQueue, logger zerolog.Logger) *Service {
	return &Service{inbox: inbox, queue: queue, log: logger}
}

// Ingest сохраняет событие. Повторная доставка того же tg_update_id — no-op.
func (s *Service) Ingest(ctx context.Context, tgUpdateID int64, payload []byte, receivedAt time.Time) (domain.IngestResult, error) {
	inserted, err := s.inbox.InsertRawUpdate(ctx, tgUpdateID, payload, receivedAt)
	if err != nil {
		return "", fmt.Errorf("сохранение события %d: %w", tgUpdateID, err)
	}
	if !inserted {
		metrics.UpdatesDuplicate.Inc()
		s.log.Debug().Int64("tg_update_id", tgUpdateID).Msg("ingest: повторная доставка, пропускаем")
		return domain.IngestDuplicate, nil
	}
	metrics.UpdatesIngested.Inc()

	if s.queue != nil {
		// Сигнал — только ускорение: обработчик просыпается и по таймауту.
		if err := s.queue.Signal(ctx, tgUpdateID); err != nil {
			s.log.Warn().Err(err).Int64("tg_update_id", tgUpdateID).Msg("ingest: не удалось отправить сигнал обработчику")
		}
	}
	return domain.IngestAccepted, nil
}
