package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tg-channel-stats/internal/domain"
)

type stubInbox struct {
	seen      map[int64][]byte
	insertErr error
}

func newStubInbox() *stubInbox {
	return &stubInbox{seen: make(map[int64][]byte)}
}

func (s *stubInbox) InsertRawUpdate(ctx context.Context, tgUpdateID int64, payload []byte, receivedAt time.Time) (bool, error) {
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, ok := s.seen[tgUpdateID]; ok {
		return false, nil
	}
	s.seen[tgUpdateID] = payload
	return true, nil
}

func (s *stubInbox) ListPending(ctx context.Context, limit int) ([]domain.RawUpdate, error) {
	return nil, nil
}
func (s *stubInbox) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	return nil
}
func (s *stubInbox) MarkError(ctx context.Context, id int64, processedAt time.Time, errText string) error {
	return nil
}

type stubQueue struct {
	signals []int64
}

func (s *stubQueue) Signal(ctx context.Context, tgUpdateID int64) error {
	s.signals = append(s.signals, tgUpdateID)
	return nil
}

func (s *stubQueue) PopWait(ctx context.Context, timeout time.Duration) (bool, error) {
	return false, nil
}

func TestIngestDeduplicates(t *testing.T) {
	inbox := newStubInbox()
	queue := &stubQueue{}
	service := NewService(inbox, queue, zerolog.Nop())

	payload := []byte(`{"update_id":42}`)
	now := time.Now().UTC()

	first, err := service.Ingest(context.Background(), 42, payload, now)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if first != domain.IngestAccepted {
		t.Fatalf("ожидали accepted, получили %s", first)
	}

	second, err := service.Ingest(context.Background(), 42, payload, now.Add(time.Second))
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if second != domain.IngestDuplicate {
		t.Fatalf("ожидали duplicate, получили %s", second)
	}

	if len(inbox.seen) != 1 {
		t.Fatalf("ожидали ровно одну запись в инбоксе, получили %d", len(inbox.seen))
	}
	if len(queue.signals) != 1 || queue.signals[0] != 42 {
		t.Fatalf("ожидали один сигнал для принятого события, получили %v", queue.signals)
	}
}

func TestIngestStoreFailure(t *testing.T) {
	inbox := newStubInbox()
	inbox.insertErr = errors.New("база недоступна")
	service := NewService(inbox, nil, zerolog.Nop())

	if _, err := service.Ingest(context.Background(), 1, []byte("{}"), time.Now().UTC()); err == nil {
		t.Fatalf("ожидали ошибку хранилища")
	}
}

func TestIngestWorksWithoutQueue(t *testing.T) {
	service := NewService(newStubInbox(), nil, zerolog.Nop())

	result, err := service.Ingest(context.Background(), 7, []byte("{}"), time.Now().UTC())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result != domain.IngestAccepted {
		t.Fatalf("ожидали accepted, получили %s", result)
	}
}
