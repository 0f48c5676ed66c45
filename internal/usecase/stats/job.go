package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
)

// Job оркестрирует расчёт месячной статистики по всем активным каналам.
type Job struct {
	channels   domain.ChannelRepo
	runs       domain.StatsRunRepo
	aggregator *Aggregator
	log        zerolog.Logger
}

// NewJob создаёт задачу агрегации.
func NewJob(channels domain.ChannelRepo, runs domain.StatsRunRepo, aggregator *Aggregator, logger zerolog.Logger) *Job {
	return &Job{channels: channels, runs: runs, aggregator: aggregator, log: logger}
}

// Run считает статистику за месяц даты now по расписанию.
// Ошибки отдельных каналов собираются в результат и не прерывают остальные;
// как ошибка возвращаются только отказы хранилища целиком.
func (j *Job) Run(ctx context.Context, now time.Time) (domain.StatsJobResult, error) {
	return j.run(ctx, MonthStart(now), domain.TriggerScheduled, now)
}

// RunForMonth считает статистику за произвольный месяц по ручному запросу.
func (j *Job) RunForMonth(ctx context.Context, monthStart, now time.Time) (domain.StatsJobResult, error) {
	return j.run(ctx, MonthStart(monthStart), domain.TriggerManual, now)
}

func (j *Job) run(ctx context.Context, monthStart time.Time, trigger domain.TriggerSource, now time.Time) (domain.StatsJobResult, error) {
	started := time.Now()
	defer func() { metrics.StatsRunSeconds.Observe(time.Since(started).Seconds()) }()

	jobLog := j.log.With().
		Str("invocation", uuid.NewString()).
		Time("month", monthStart).
		Str("trigger", string(trigger)).
		Logger()

	result := domain.StatsJobResult{ChannelsByID: make(map[int64]domain.Channel)}

	channels, err := j.channels.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("выборка активных каналов: %w", err)
	}
	if len(channels) == 0 {
		jobLog.Info().Msg("stats: нет активных каналов, расчёт пропущен")
		return result, nil
	}

	computed := make([]domain.StatsRun, 0, len(channels))
	for _, channel := range channels {
		result.ChannelsByID[channel.ID] = channel
		run, err := j.aggregator.ComputeForChannelAndMonth(ctx, channel.ID, monthStart, trigger, now)
		if err != nil {
			metrics.StatsChannelErrors.Inc()
			result.Errors = append(result.Errors, domain.ChannelError{ChannelID: channel.ID, Err: err})
			jobLog.Error().Err(err).Int64("channel", channel.ID).Msg("stats: расчёт канала завершился ошибкой")
			continue
		}
		metrics.IncStatsRunForChannel(channel.ID)
		computed = append(computed, run)
	}

	// Снимки сохраняются одним батчем после обхода всех каналов: прерывание
	// до этой точки не оставляет частично записанный прогон.
	saved, err := j.runs.SaveRuns(ctx, computed)
	if err != nil {
		return result, fmt.Errorf("сохранение снимков: %w", err)
	}
	result.Runs = saved

	jobLog.Info().
		Int("channels", len(channels)).
		Int("runs", len(saved)).
		Int("errors", len(result.Errors)).
		Msg("stats: расчёт завершён")
	return result, nil
}
