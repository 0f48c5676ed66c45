package stats

import (
	"testing"
	"time"

	"tg-channel-stats/internal/domain"
)

func post(id int64, postedAt time.Time, likes, comments int) domain.ChannelPost {
	return domain.ChannelPost{
		ID:       id,
		PostedAt: postedAt,
		URL:      "https://t.me/demo/1",
		Likes:    likes,
		Comments: comments,
	}
}

func TestComputeRunEmptyMonth(t *testing.T) {
	monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	run := ComputeRun(nil, 7, monthStart, domain.TriggerScheduled, now)

	if run.PostsTotal != 0 {
		t.Fatalf("ожидали 0 постов, получили %d", run.PostsTotal)
	}
	if run.PostsPerDay != 0 {
		t.Fatalf("ожидали 0 постов в день, получили %f", run.PostsPerDay)
	}
	if run.TopLiked != nil || run.TopCommented != nil {
		t.Fatalf("для пустого месяца не ожидали постов-лидеров")
	}
	if run.MaxDay != nil || run.MinDay != nil {
		t.Fatalf("для пустого месяца не ожидали дней-лидеров")
	}
	if run.ChannelID != 7 || !run.Month.Equal(monthStart) {
		t.Fatalf("снимок привязан не к тому каналу или месяцу")
	}
}

func TestComputeRunLikesTieBreaksByEarlierPost(t *testing.T) {
	monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	posts := []domain.ChannelPost{
		post(1, monthStart.AddDate(0, 0, 2), 5, 0),
		post(2, monthStart.AddDate(0, 0, 10), 9, 0),
		post(3, monthStart.AddDate(0, 0, 4), 9, 0),
	}

	run := ComputeRun(posts, 1, monthStart, domain.TriggerScheduled, now)

	if run.TopLiked == nil || run.TopLiked.PostID != 3 {
		t.Fatalf("при равных лайках ожидали более ранний пост 3, получили %+v", run.TopLiked)
	}
	if run.TopLiked.Count != 9 {
		t.Fatalf("ожидали 9 лайков, получили %d", run.TopLiked.Count)
	}
}

func TestComputeRunMarchScenario(t *testing.T) {
	monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)
	posts := []domain.ChannelPost{
		post(1, time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC), 10, 1),
		post(2, time.Date(2025, time.March, 1, 18, 0, 0, 0, time.UTC), 20, 2),
		post(3, time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC), 5, 7),
		post(4, time.Date(2025, time.March, 30, 12, 0, 0, 0, time.UTC), 30, 0),
	}

	run := ComputeRun(posts, 1, monthStart, domain.TriggerScheduled, now)

	if run.PostsTotal != 4 {
		t.Fatalf("ожидали 4 поста, получили %d", run.PostsTotal)
	}
	if run.TopLiked == nil || run.TopLiked.PostID != 4 || run.TopLiked.Count != 30 {
		t.Fatalf("ожидали лидера по лайкам с 30 лайками, получили %+v", run.TopLiked)
	}
	if run.TopCommented == nil || run.TopCommented.PostID != 3 || run.TopCommented.Count != 7 {
		t.Fatalf("ожидали лидера по комментариям с 7 комментариями, получили %+v", run.TopCommented)
	}
	if run.MaxDay == nil || run.MaxDay.Count != 2 || run.MaxDay.Date.Day() != 1 {
		t.Fatalf("ожидали максимум 2 поста 1 марта, получили %+v", run.MaxDay)
	}
	if run.MinDay == nil || run.MinDay.Count != 1 || run.MinDay.Date.Day() != 15 {
		t.Fatalf("ожидали минимум 1 пост 15 марта, получили %+v", run.MinDay)
	}

	wantAvg := 4.0 / 31.0
	if diff := run.PostsPerDay - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("ожидали среднее %f, получили %f", wantAvg, run.PostsPerDay)
	}
}

func TestComputeRunAveragePartialMonth(t *testing.T) {
	monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	// До десятого марта прошло десять дней окна.
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	posts := []domain.ChannelPost{
		post(1, time.Date(2025, time.March, 2, 12, 0, 0, 0, time.UTC), 1, 0),
		post(2, time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC), 2, 0),
	}

	run := ComputeRun(posts, 1, monthStart, domain.TriggerManual, now)

	wantAvg := 2.0 / 10.0
	if diff := run.PostsPerDay - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("ожидали среднее %f, получили %f", wantAvg, run.PostsPerDay)
	}
	if run.Trigger != domain.TriggerManual {
		t.Fatalf("ожидали ручной источник запуска")
	}
}

func TestComputeRunAverageCappedAtMonthLength(t *testing.T) {
	monthStart := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	// Запуск много позже конца месяца: знаменатель не превышает длину февраля.
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	posts := []domain.ChannelPost{
		post(1, time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC), 0, 0),
	}

	run := ComputeRun(posts, 1, monthStart, domain.TriggerScheduled, now)

	wantAvg := 1.0 / 28.0
	if diff := run.PostsPerDay - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("ожидали среднее %f, получили %f", wantAvg, run.PostsPerDay)
	}
}
