package domain

import (
	"context"
	"time"
)

// IngestResult описывает итог приёма события.
type IngestResult string

const (
	// IngestAccepted — событие сохранено и ждёт обработки.
	IngestAccepted IngestResult = "accepted"
	// IngestDuplicate — событие с таким внешним идентификатором уже принято.
	IngestDuplicate IngestResult = "duplicate"
)

// UpdateInbox управляет журналом входящих событий.
type UpdateInbox interface {
	// InsertRawUpdate сохраняет событие со статусом Pending.
	// Возвращает false без ошибки, если tg_update_id уже есть в журнале.
	InsertRawUpdate(ctx context.Context, tgUpdateID int64, payload []byte, receivedAt time.Time) (bool, error)
	// ListPending возвращает ограниченную порцию необработанных событий в порядке приёма.
	ListPending(ctx context.Context, limit int) ([]RawUpdate, error)
	// MarkProcessed переводит событие в статус Processed.
	MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error
	// MarkError переводит событие в статус Error с ограниченным по длине описанием.
	MarkError(ctx context.Context, id int64, processedAt time.Time, errText string) error
}

// ChannelRepo управляет отслеживаемыми каналами.
type ChannelRepo interface {
	GetByTGID(ctx context.Context, tgChannelID int64) (Channel, error)
	ListActive(ctx context.Context) ([]Channel, error)
}

// PostRepo управляет реестром постов.
type PostRepo interface {
	// UpsertPost создаёт пост или обновляет счётчики и превью существующего.
	// Время публикации и ссылка после первой вставки не меняются.
	UpsertPost(ctx context.Context, fact PostFact, channelID int64) (ChannelPost, error)
	// ListForMonth возвращает посты канала за окно [monthStart, monthStart+1месяц).
	ListForMonth(ctx context.Context, channelID int64, monthStart time.Time) ([]ChannelPost, error)
}

// StatsRunRepo сохраняет снимки статистики.
type StatsRunRepo interface {
	// SaveRuns сохраняет снимки одним батчем и проставляет идентификаторы.
	SaveRuns(ctx context.Context, runs []StatsRun) ([]StatsRun, error)
	// ListRuns возвращает историю снимков канала, свежие первыми.
	ListRuns(ctx context.Context, channelID int64, limit int) ([]StatsRun, error)
}

// MessageSender отправляет текст в указанный чат.
type MessageSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// SenderFactory создаёт клиент отправки сообщений.
// Возвращает nil без ошибки, если интеграция выключена.
type SenderFactory interface {
	CreateClient(ctx context.Context) (MessageSender, error)
}

// UpdateQueue будит обработчик при поступлении новых событий.
type UpdateQueue interface {
	// Signal сообщает о принятом событии. Потеря сигнала не критична:
	// обработчик всё равно просыпается по таймауту PopWait.
	Signal(ctx context.Context, tgUpdateID int64) error
	// PopWait ждёт сигнал не дольше timeout. Возвращает false, если сигналов не было.
	PopWait(ctx context.Context, timeout time.Duration) (bool, error)
}

// Cache защищает от повторного выполнения работы между репликами.
type Cache interface {
	// Once выполняет fn, если ключ ещё не занят. Повторный вызов
	// с тем же ключом внутри ttl — no-op.
	Once(key string, ttl time.Duration, fn func() error) error
}
