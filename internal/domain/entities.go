package domain

import "time"

// Channel описывает отслеживаемый канал Telegram.
type Channel struct {
	ID               int64
	TGChannelID      int64
	Title            string
	DiscussionChatID *int64
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UpdateStatus описывает состояние обработки входящего события.
type UpdateStatus string

const (
	// UpdateStatusPending — событие принято и ждёт обработки.
	UpdateStatusPending UpdateStatus = "pending"
	// UpdateStatusProcessed — событие успешно обработано.
	UpdateStatusProcessed UpdateStatus = "processed"
	// UpdateStatusError — обработка события завершилась ошибкой.
	UpdateStatusError UpdateStatus = "error"
)

// RawUpdate хранит одно входящее событие в исходном виде.
type RawUpdate struct {
	ID          int64
	TGUpdateID  int64
	Payload     []byte
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	Status      UpdateStatus
	ErrorText   string
}

// ChannelPost представляет текущее состояние вовлечённости одного поста канала.
type ChannelPost struct {
	ID          int64
	ChannelID   int64
	TGMsgID     int64
	PostedAt    time.Time
	URL         string
	TextPreview string
	Likes       int
	Comments    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PostFact — факт о посте, извлечённый из сырого события.
type PostFact struct {
	TGChannelID int64
	TGMsgID     int64
	PostedAt    time.Time
	URL         string
	TextPreview string
	Likes       int
	Comments    int
}

// TriggerSource описывает источник запуска расчёта статистики.
type TriggerSource string

const (
	// TriggerScheduled — расчёт запущен по расписанию в конце месяца.
	TriggerScheduled TriggerSource = "scheduled"
	// TriggerManual — расчёт запрошен вручную.
	TriggerManual TriggerSource = "manual"
)

// PostRef указывает на пост-лидер внутри снимка статистики.
type PostRef struct {
	PostID int64
	URL    string
	Count  int
}

// DayCount хранит дату и количество постов за этот день.
type DayCount struct {
	Date  time.Time
	Count int
}

// StatsRun — неизменяемый снимок статистики канала за один месяц.
// Пересчёт добавляет новую запись, старые записи никогда не правятся.
type StatsRun struct {
	ID           int64
	ChannelID    int64
	Month        time.Time
	Trigger      TriggerSource
	CalculatedAt time.Time
	PostsTotal   int
	PostsPerDay  float64
	TopLiked     *PostRef
	TopCommented *PostRef
	MaxDay       *DayCount
	MinDay       *DayCount
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChannelError фиксирует ошибку агрегации по одному каналу.
type ChannelError struct {
	ChannelID int64
	Err       error
}

// StatsJobResult — итог одного прогона задачи агрегации по всем активным каналам.
type StatsJobResult struct {
	Runs         []StatsRun
	Errors       []ChannelError
	ChannelsByID map[int64]Channel
}
