package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
	"tg-channel-stats/internal/usecase/stats"
)

// Service рассылает снимки статистики в обсуждения каналов.
type Service struct {
	factory domain.SenderFactory
	log     zerolog.Logger
}

// NewService создаёт сервис рассылки.
func NewService(factory domain.SenderFactory, logger zerolog.Logger) *Service {
	return &Service{factory: factory, log: logger}
}

// SendStatsToChannels отправляет каждый снимок в обсуждение его канала.
// Неудачная отправка одному каналу не мешает остальным.
func (s *Service) SendStatsToChannels(ctx context.Context, result domain.StatsJobResult) error {
	if len(result.Runs) == 0 {
		return nil
	}

	client, err := s.factory.CreateClient(ctx)
	if err != nil {
		return fmt.Errorf("создание клиента: %w", err)
	}
	if client == nil {
		s.log.Debug().Msg("notify: интеграция выключена, рассылка пропущена")
		return nil
	}

	sent, failed := 0, 0
	for _, run := range result.Runs {
		channel, ok := result.ChannelsByID[run.ChannelID]
		if !ok {
			s.log.Warn().Int64("channel", run.ChannelID).Msg("notify: канал отсутствует в результате, снимок пропущен")
			continue
		}
		if channel.DiscussionChatID == nil {
			s.log.Debug().Int64("channel", channel.ID).Msg("notify: у канала нет обсуждения, снимок пропущен")
			continue
		}

		text := stats.FormatRun(run, channel)
		if err := client.SendText(ctx, *channel.DiscussionChatID, text); err != nil {
			failed++
			metrics.NotifySendsFailed.Inc()
			s.log.Error().Err(err).Int64("channel", channel.ID).Int64("chat", *channel.DiscussionChatID).Msg("notify: отправка не удалась")
			continue
		}
		sent++
		metrics.NotifySendsOK.Inc()
	}

	s.log.Info().Int("sent", sent).Int("failed", failed).Msg("notify: рассылка завершена")
	return nil
}
