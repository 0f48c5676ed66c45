package process

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
)

// Service превращает события инбокса в записи реестра постов.
type Service struct {
	inbox    domain.UpdateInbox
	channels domain.ChannelRepo
	posts    domain.PostRepo
	log      zerolog.Logger
}

// NewService создаёт обработчик событий.
func NewService(inbox domain.UpdateInbox, channels domain.ChannelRepo, posts domain.PostRepo, logger zerolog.Logger) *Service {
	return &Service{inbox: inbox, channels: channels, posts: posts, log: logger}
}

// ProcessPending обрабатывает одну порцию ожидающих событий.
// Ошибка одного события фиксируется на его строке и не останавливает порцию.
func (s *Service) ProcessPending(ctx context.Context, batchSize int) (processed, errored int, err error) {
	updates, err := s.inbox.ListPending(ctx, batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("выборка событий: %w", err)
	}

	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return processed, errored, err
		}
		if handleErr := s.handleUpdate(ctx, update); handleErr != nil {
			errored++
			metrics.UpdatesErrored.Inc()
			s.log.Warn().Err(handleErr).Int64("tg_update_id", update.TGUpdateID).Msg("processor: событие завершилось ошибкой")
			if markErr := s.inbox.MarkError(ctx, update.ID, time.Now().UTC(), handleErr.Error()); markErr != nil {
				return processed, errored, fmt.Errorf("фиксация ошибки события %d: %w", update.TGUpdateID, markErr)
			}
			continue
		}
		processed++
		metrics.UpdatesProcessed.Inc()
		if markErr := s.inbox.MarkProcessed(ctx, update.ID, time.Now().UTC()); markErr != nil {
			return processed, errored, fmt.Errorf("фиксация обработки события %d: %w", update.TGUpdateID, markErr)
		}
	}
	return processed, errored, nil
}

func (s *Service) handleUpdate(ctx context.Context, update domain.RawUpdate) error {
	fact, err := ParseFact(update.Payload)
	if err != nil {
		return err
	}

	channel, err := s.channels.GetByTGID(ctx, fact.TGChannelID)
	if err != nil {
		return fmt.Errorf("канал %d: %w", fact.TGChannelID, err)
	}

	if _, err := s.posts.UpsertPost(ctx, fact, channel.ID); err != nil {
		return fmt.Errorf("сохранение поста %d/%d: %w", channel.ID, fact.TGMsgID, err)
	}
	return nil
}

// Run крутит цикл обработчика: просыпается по сигналу из очереди или по таймауту.
func (s *Service) Run(ctx context.Context, queue domain.UpdateQueue, batchSize int, pollInterval time.Duration) {
	for {
		if queue != nil {
			if _, err := queue.PopWait(ctx, pollInterval); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.log.Error().Err(err).Msg("processor: ошибка чтения очереди")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		} else {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
		}

		for {
			processed, errored, err := s.ProcessPending(ctx, batchSize)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				s.log.Error().Err(err).Msg("processor: обработка порции прервана")
				break
			}
			if processed > 0 || errored > 0 {
				s.log.Info().Int("processed", processed).Int("errored", errored).Msg("processor: порция обработана")
			}
			// Порция меньше лимита: очередь выбрана, ждём следующий сигнал.
			if processed+errored < batchSize {
				break
			}
		}
	}
}
