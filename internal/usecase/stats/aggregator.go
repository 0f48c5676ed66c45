package stats

import (
	"context"
	"fmt"
	"time"

	"tg-channel-stats/internal/domain"
)

// Aggregator считает месячную статистику канала по реестру постов.
// Снимок не сохраняется здесь: персистентность — забота вызывающего.
type Aggregator struct {
	posts domain.PostRepo
}

// NewAggregator создаёт агрегатор.
func NewAggregator(posts domain.PostRepo) *Aggregator {
	return &Aggregator{posts: posts}
}

// ComputeForChannelAndMonth строит снимок статистики канала за месяц.
func (a *Aggregator) ComputeForChannelAndMonth(ctx context.Context, channelID int64, monthStart time.Time, trigger domain.TriggerSource, now time.Time) (domain.StatsRun, error) {
	posts, err := a.posts.ListForMonth(ctx, channelID, monthStart)
	if err != nil {
		return domain.StatsRun{}, fmt.Errorf("посты канала %d: %w", channelID, err)
	}
	return ComputeRun(posts, channelID, monthStart, trigger, now), nil
}

// ComputeRun считает снимок по готовому списку постов месяца.
func ComputeRun(posts []domain.ChannelPost, channelID int64, monthStart time.Time, trigger domain.TriggerSource, now time.Time) domain.StatsRun {
	monthStart = MonthStart(monthStart)
	run := domain.StatsRun{
		ChannelID:    channelID,
		Month:        monthStart,
		Trigger:      trigger,
		CalculatedAt: now.UTC(),
		PostsTotal:   len(posts),
	}

	days := elapsedDays(monthStart, now)
	run.PostsPerDay = float64(len(posts)) / float64(days)

	if len(posts) == 0 {
		return run
	}

	run.TopLiked = pickTop(posts, func(p domain.ChannelPost) int { return p.Likes })
	run.TopCommented = pickTop(posts, func(p domain.ChannelPost) int { return p.Comments })
	run.MaxDay, run.MinDay = pickDays(posts)
	return run
}

// elapsedDays возвращает число прошедших дней окна на момент now,
// не меньше одного и не больше фактической длины месяца.
func elapsedDays(monthStart, now time.Time) int {
	total := DaysInMonth(monthStart.Year(), monthStart.Month())
	now = now.UTC()
	if !now.After(monthStart) {
		return 1
	}
	elapsed := int(now.Sub(monthStart).Hours()/24) + 1
	if elapsed > total {
		return total
	}
	return elapsed
}

// pickTop выбирает пост с максимальным значением счётчика.
// При равенстве побеждает более ранний по времени публикации.
func pickTop(posts []domain.ChannelPost, count func(domain.ChannelPost) int) *domain.PostRef {
	best := posts[0]
	for _, post := range posts[1:] {
		c, bc := count(post), count(best)
		if c > bc || (c == bc && post.PostedAt.Before(best.PostedAt)) {
			best = post
		}
	}
	return &domain.PostRef{PostID: best.ID, URL: best.URL, Count: count(best)}
}

// pickDays находит день с максимумом постов и день с минимальным ненулевым
// количеством. Дни без постов в минимум не попадают, иначе он всегда был бы нулём.
func pickDays(posts []domain.ChannelPost) (maxDay, minDay *domain.DayCount) {
	counts := make(map[time.Time]int)
	for _, post := range posts {
		day := post.PostedAt.UTC().Truncate(24 * time.Hour)
		counts[day]++
	}

	for day, count := range counts {
		if maxDay == nil || count > maxDay.Count || (count == maxDay.Count && day.Before(maxDay.Date)) {
			maxDay = &domain.DayCount{Date: day, Count: count}
		}
		if minDay == nil || count < minDay.Count || (count == minDay.Count && day.Before(minDay.Date)) {
			minDay = &domain.DayCount{Date: day, Count: count}
		}
	}
	return maxDay, minDay
}
