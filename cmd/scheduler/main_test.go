package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
)

type stubRunRepo struct {
	runs    []domain.StatsRun
	channel int64
	limit   int
}

func (s *stubRunRepo) SaveRuns(ctx context.Context, runs []domain.StatsRun) ([]domain.StatsRun, error) {
	return runs, nil
}

func (s *stubRunRepo) ListRuns(ctx context.Context, channelID int64, limit int) ([]domain.StatsRun, error) {
	s.channel = channelID
	s.limit = limit
	return s.runs, nil
}

func TestAdminListRuns(t *testing.T) {
	repo := &stubRunRepo{runs: []domain.StatsRun{{
		ID:           7,
		ChannelID:    5,
		Month:        time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		Trigger:      domain.TriggerScheduled,
		CalculatedAt: time.Date(2025, time.March, 31, 23, 30, 0, 0, time.UTC),
		PostsTotal:   4,
		PostsPerDay:  4.0 / 31.0,
	}}}
	server := newAdminServer(&statsRunner{log: zerolog.Nop()}, repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats/runs?channel=5&limit=10", nil)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if repo.channel != 5 || repo.limit != 10 {
		t.Fatalf("параметры запроса должны дойти до репозитория: channel=%d limit=%d", repo.channel, repo.limit)
	}

	var views []statsRunView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("не ожидали ошибку разбора ответа: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("ожидали один снимок, получили %d", len(views))
	}
	if views[0].ID != 7 || views[0].Month != "2025-03" || views[0].Trigger != string(domain.TriggerScheduled) {
		t.Fatalf("неожиданный снимок: %+v", views[0])
	}
}

func TestAdminListRunsRequiresChannel(t *testing.T) {
	server := newAdminServer(&statsRunner{log: zerolog.Nop()}, &stubRunRepo{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/admin/stats/runs", nil)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("без параметра channel ожидали 400, получили %d", rec.Code)
	}
}

func TestAdminManualRunRejectsBadMonth(t *testing.T) {
	server := newAdminServer(&statsRunner{log: zerolog.Nop()}, &stubRunRepo{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/admin/stats/run?month=2025-13", nil)
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("для некорректного месяца ожидали 400, получили %d", rec.Code)
	}
}
