package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
)

// ErrChannelNotFound возвращается, если канал не отслеживается.
var ErrChannelNotFound = errors.New("канал не отслеживается")

// Длина текста ошибки в raw_updates ограничена схемой.
const errorTextLimit = 500

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.UpdateInbox  = (*Postgres)(nil)
	_ domain.ChannelRepo  = (*Postgres)(nil)
	_ domain.PostRepo     = (*Postgres)(nil)
	_ domain.StatsRunRepo = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 5*time.Second)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// InsertRawUpdate сохраняет событие со статусом Pending.
// Повторная доставка того же tg_update_id отбрасывается на уровне БД.
func (p *Postgres) InsertRawUpdate(ctx context.Context, tgUpdateID int64, payload []byte, receivedAt time.Time) (bool, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	res, err := p.pool.Exec(ctx, `
INSERT INTO raw_updates (tg_update_id, payload, received_at, status)
VALUES ($1, $2, $3, 'pending')
ON CONFLICT (tg_update_id) DO NOTHING
`, tgUpdateID, payload, receivedAt)
	metrics.ObserveNetworkRequest("postgres", "raw_updates_insert", "raw_updates", start, err)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// ListPending возвращает порцию необработанных событий в порядке приёма.
func (p *Postgres) ListPending(ctx context.Context, limit int) ([]domain.RawUpdate, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, tg_update_id, payload, received_at, processed_at, status, error_text
FROM raw_updates
WHERE status = 'pending'
ORDER BY tg_update_id
LIMIT $1
`, limit)
	metrics.ObserveNetworkRequest("postgres", "raw_updates_list_pending", "raw_updates", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []domain.RawUpdate
	for rows.Next() {
		var (
			u           domain.RawUpdate
			processedAt sql.NullTime
			errText     sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.TGUpdateID, &u.Payload, &u.ReceivedAt, &processedAt, &u.Status, &errText); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			ts := processedAt.Time
			u.ProcessedAt = &ts
		}
		if errText.Valid {
			u.ErrorText = errText.String
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// MarkProcessed переводит событие в статус Processed.
// Условие status='pending' гарантирует единственный переход.
func (p *Postgres) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE raw_updates SET status='processed', processed_at=$2
WHERE id=$1 AND status='pending'
`, id, processedAt)
	metrics.ObserveNetworkRequest("postgres", "raw_updates_mark_processed", "raw_updates", start, err)
	return err
}

// MarkError переводит событие в статус Error с ограниченным описанием.
func (p *Postgres) MarkError(ctx context.Context, id int64, processedAt time.Time, errText string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	errText = truncateErrorText(errText)
	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE raw_updates SET status='error', processed_at=$2, error_text=$3
WHERE id=$1 AND status='pending'
`, id, processedAt, errText)
	metrics.ObserveNetworkRequest("postgres", "raw_updates_mark_error", "raw_updates", start, err)
	return err
}

// GetByTGID возвращает канал по внешнему идентификатору.
func (p *Postgres) GetByTGID(ctx context.Context, tgChannelID int64) (domain.Channel, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		ch         domain.Channel
		discussion sql.NullInt64
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, tg_channel_id, title, discussion_chat_id, is_active, created_at, updated_at
FROM channels WHERE tg_channel_id=$1
`, tgChannelID).Scan(&ch.ID, &ch.TGChannelID, &ch.Title, &discussion, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "channels_get_by_tgid", "channels", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Channel{}, ErrChannelNotFound
	}
	if err != nil {
		return domain.Channel{}, err
	}
	if discussion.Valid {
		id := discussion.Int64
		ch.DiscussionChatID = &id
	}
	return ch, nil
}

// ListActive возвращает активные каналы.
func (p *Postgres) ListActive(ctx context.Context) ([]domain.Channel, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, tg_channel_id, title, discussion_chat_id, is_active, created_at, updated_at
FROM channels WHERE is_active
ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "channels_list_active", "channels", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var (
			ch         domain.Channel
			discussion sql.NullInt64
		)
		if err := rows.Scan(&ch.ID, &ch.TGChannelID, &ch.Title, &discussion, &ch.IsActive, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		if discussion.Valid {
			id := discussion.Int64
			ch.DiscussionChatID = &id
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpsertPost создаёт пост или обновляет счётчики и превью существующего.
// posted_at и url при конфликте не трогаются: они неизменяемы после первой вставки.
func (p *Postgres) UpsertPost(ctx context.Context, fact domain.PostFact, channelID int64) (domain.ChannelPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var post domain.ChannelPost
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO channel_posts (channel_id, tg_msg_id, posted_at, url, text_preview, likes, comments)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (channel_id, tg_msg_id) DO UPDATE
    SET likes=EXCLUDED.likes, comments=EXCLUDED.comments, text_preview=EXCLUDED.text_preview, updated_at=now()
RETURNING id, channel_id, tg_msg_id, posted_at, url, text_preview, likes, comments, created_at, updated_at
`, channelID, fact.TGMsgID, fact.PostedAt, fact.URL, fact.TextPreview, fact.Likes, fact.Comments).
		Scan(&post.ID, &post.ChannelID, &post.TGMsgID, &post.PostedAt, &post.URL, &post.TextPreview, &post.Likes, &post.Comments, &post.CreatedAt, &post.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "channel_posts_upsert", "channel_posts", start, err)
	return post, err
}

// ListForMonth возвращает посты канала за окно [monthStart, monthStart+1месяц).
func (p *Postgres) ListForMonth(ctx context.Context, channelID int64, monthStart time.Time) ([]domain.ChannelPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	monthEnd := monthStart.AddDate(0, 1, 0)
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, channel_id, tg_msg_id, posted_at, url, text_preview, likes, comments, created_at, updated_at
FROM channel_posts
WHERE channel_id=$1 AND posted_at >= $2 AND posted_at < $3
ORDER BY posted_at
`, channelID, monthStart, monthEnd)
	metrics.ObserveNetworkRequest("postgres", "channel_posts_list_month", "channel_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.ChannelPost
	for rows.Next() {
		var post domain.ChannelPost
		if err := rows.Scan(&post.ID, &post.ChannelID, &post.TGMsgID, &post.PostedAt, &post.URL, &post.TextPreview, &post.Likes, &post.Comments, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SaveRuns сохраняет снимки статистики одним батчем.
// Снимки только добавляются: пересчёт месяца создаёт новую строку.
func (p *Postgres) SaveRuns(ctx context.Context, runs []domain.StatsRun) ([]domain.StatsRun, error) {
	if len(runs) == 0 {
		return nil, nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	batch := &pgx.Batch{}
	for _, run := range runs {
		batch.Queue(`
INSERT INTO stats_runs (
    channel_id, month, trigger_source, calculated_at, posts_total, posts_per_day,
    top_liked_post_id, top_liked_url, top_liked_count,
    top_commented_post_id, top_commented_url, top_commented_count,
    max_day_date, max_day_count, min_day_date, min_day_count
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
RETURNING id, created_at, updated_at
`, run.ChannelID, run.Month, run.Trigger, run.CalculatedAt, run.PostsTotal, run.PostsPerDay,
			postRefArgs(run.TopLiked), postRefURLArg(run.TopLiked), postRefCountArg(run.TopLiked),
			postRefArgs(run.TopCommented), postRefURLArg(run.TopCommented), postRefCountArg(run.TopCommented),
			dayDateArg(run.MaxDay), dayCountArg(run.MaxDay), dayDateArg(run.MinDay), dayCountArg(run.MinDay))
	}

	start := time.Now()
	br := p.pool.SendBatch(ctx, batch)
	metrics.ObserveNetworkRequest("postgres", "stats_runs_send_batch", "stats_runs", start, nil)
	defer br.Close()

	saved := make([]domain.StatsRun, 0, len(runs))
	for _, run := range runs {
		start = time.Now()
		err := br.QueryRow().Scan(&run.ID, &run.CreatedAt, &run.UpdatedAt)
		metrics.ObserveNetworkRequest("postgres", "stats_runs_batch_insert", "stats_runs", start, err)
		if err != nil {
			return nil, fmt.Errorf("сохранение снимка канала %d: %w", run.ChannelID, err)
		}
		saved = append(saved, run)
	}
	return saved, nil
}

// ListRuns возвращает историю снимков канала, свежие первыми.
func (p *Postgres) ListRuns(ctx context.Context, channelID int64, limit int) ([]domain.StatsRun, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, channel_id, month, trigger_source, calculated_at, posts_total, posts_per_day,
       top_liked_post_id, top_liked_url, top_liked_count,
       top_commented_post_id, top_commented_url, top_commented_count,
       max_day_date, max_day_count, min_day_date, min_day_count,
       created_at, updated_at
FROM stats_runs
WHERE channel_id=$1
ORDER BY calculated_at DESC
LIMIT $2
`, channelID, limit)
	metrics.ObserveNetworkRequest("postgres", "stats_runs_list", "stats_runs", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatsRun
	for rows.Next() {
		var (
			run            domain.StatsRun
			likedID        sql.NullInt64
			likedURL       sql.NullString
			likedCount     sql.NullInt64
			commentedID    sql.NullInt64
			commentedURL   sql.NullString
			commentedCount sql.NullInt64
			maxDate        sql.NullTime
			maxCount       sql.NullInt64
			minDate        sql.NullTime
			minCount       sql.NullInt64
		)
		if err := rows.Scan(&run.ID, &run.ChannelID, &run.Month, &run.Trigger, &run.CalculatedAt, &run.PostsTotal, &run.PostsPerDay,
			&likedID, &likedURL, &likedCount,
			&commentedID, &commentedURL, &commentedCount,
			&maxDate, &maxCount, &minDate, &minCount,
			&run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, err
		}
		if likedID.Valid {
			run.TopLiked = &domain.PostRef{PostID: likedID.Int64, URL: likedURL.String, Count: int(likedCount.Int64)}
		}
		if commentedID.Valid {
			run.TopCommented = &domain.PostRef{PostID: commentedID.Int64, URL: commentedURL.String, Count: int(commentedCount.Int64)}
		}
		if maxDate.Valid {
			run.MaxDay = &domain.DayCount{Date: maxDate.Time, Count: int(maxCount.Int64)}
		}
		if minDate.Valid {
			run.MinDay = &domain.DayCount{Date: minDate.Time, Count: int(minCount.Int64)}
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// truncateErrorText режет текст по границе руны: срез по байтам может
// разорвать многобайтовый символ, и Postgres отклонит такую строку.
func truncateErrorText(text string) string {
	runes := []rune(text)
	if len(runes) <= errorTextLimit {
		return text
	}
	return string(runes[:errorTextLimit])
}

func postRefArgs(ref *domain.PostRef) any {
	if ref == nil {
		return nil
	}
	return ref.PostID
}

func postRefURLArg(ref *domain.PostRef) any {
	if ref == nil {
		return nil
	}
	return ref.URL
}

func postRefCountArg(ref *domain.PostRef) any {
	if ref == nil {
		return nil
	}
	return ref.Count
}

func dayDateArg(day *domain.DayCount) any {
	if day == nil {
		return nil
	}
	return day.Date
}

func dayCountArg(day *domain.DayCount) any {
	if day == nil {
		return nil
	}
	return day.Count
}
