package stats

import (
	"fmt"
	"html"
	"strings"
	"time"

	"tg-channel-stats/internal/domain"
)

var monthNames = [...]string{
	"январь", "февраль", "март", "апрель", "май", "июнь",
	"июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь",
}

// FormatRun формирует текстовое представление снимка статистики для отправки в обсуждение.
func FormatRun(run domain.StatsRun, channel domain.Channel) string {
	var sections []string

	title := strings.TrimSpace(channel.Title)
	header := fmt.Sprintf("📊 <b>Статистика за %s %d</b>", monthName(run.Month), run.Month.Year())
	if title != "" {
		header += "\n" + html.EscapeString(title)
	}
	sections = append(sections, header)

	totals := fmt.Sprintf("Всего постов: <b>%d</b>\nВ среднем в день: <b>%.1f</b>", run.PostsTotal, run.PostsPerDay)
	sections = append(sections, totals)

	if run.TopLiked != nil {
		sections = append(sections, fmt.Sprintf("❤️ Самый залайканный пост — <a href=\"%s\">ссылка</a> (%d)",
			html.EscapeString(run.TopLiked.URL), run.TopLiked.Count))
	}
	if run.TopCommented != nil {
		sections = append(sections, fmt.Sprintf("💬 Самый обсуждаемый пост — <a href=\"%s\">ссылка</a> (%d)",
			html.EscapeString(run.TopCommented.URL), run.TopCommented.Count))
	}
	if run.MaxDay != nil {
		sections = append(sections, fmt.Sprintf("📈 Больше всего постов: %s (%d)", formatDay(run.MaxDay.Date), run.MaxDay.Count))
	}
	if run.MinDay != nil {
		sections = append(sections, fmt.Sprintf("📉 Меньше всего постов: %s (%d)", formatDay(run.MinDay.Date), run.MinDay.Count))
	}
	if run.PostsTotal == 0 {
		sections = append(sections, "За этот месяц постов не было.")
	}

	return strings.Join(sections, "\n\n")
}

func monthName(t time.Time) string {
	return monthNames[int(t.Month())-1]
}

func formatDay(t time.Time) string {
	return t.UTC().Format("02.01.2006")
}
