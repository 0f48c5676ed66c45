package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tg-channel-stats/internal/domain"
)

// ErrNotChannelPost возвращается, если событие не содержит пост канала.
var ErrNotChannelPost = errors.New("событие не содержит пост канала")

const previewLimit = 500

type updatePayload struct {
	ChannelPost *messagePayload `json:"channel_post"`
	EditedPost  *messagePayload `json:"edited_channel_post"`
}

type messagePayload struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
	Chat      struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"chat"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Reactions []struct {
		TotalCount int `json:"total_count"`
	} `json:"reactions"`
	Replies struct {
		Count int `json:"count"`
	} `json:"replies"`
}

// ParseFact извлекает факт о посте из сырой полезной нагрузки.
func ParseFact(payload []byte) (domain.PostFact, error) {
	var raw updatePayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return domain.PostFact{}, fmt.Errorf("разбор события: %w", err)
	}

	msg := raw.ChannelPost
	if msg == nil {
		msg = raw.EditedPost
	}
	if msg == nil {
		return domain.PostFact{}, ErrNotChannelPost
	}
	if msg.Chat.ID == 0 || msg.MessageID == 0 {
		return domain.PostFact{}, errors.New("в событии нет идентификаторов чата или сообщения")
	}

	likes := 0
	for _, reaction := range msg.Reactions {
		likes += reaction.TotalCount
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	return domain.PostFact{
		TGChannelID: msg.Chat.ID,
		TGMsgID:     msg.MessageID,
		PostedAt:    time.Unix(msg.Date, 0).UTC(),
		URL:         buildPostURL(msg.Chat.Username, msg.Chat.ID, msg.MessageID),
		TextPreview: truncatePreview(text),
		Likes:       likes,
		Comments:    msg.Replies.Count,
	}, nil
}

func buildPostURL(username string, chatID, msgID int64) string {
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, msgID)
	}
	// Приватные каналы адресуются по внутреннему идентификатору без префикса -100.
	internal := chatID
	if internal < 0 {
		internal = -internal
	}
	for internal >= 1000000000000 {
		internal -= 1000000000000
	}
	return fmt.Sprintf("https://t.me/c/%d/%d", internal, msgID)
}

func truncatePreview(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= previewLimit {
		return trimmed
	}
	return string(runes[:previewLimit])
}
