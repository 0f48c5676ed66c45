package telegram

import "strings"

// Телеграм не принимает сообщения длиннее 4096 символов.
const messageLimit = 4096

// SplitMessage режет текст на части, укладывающиеся в лимит Telegram.
// Разрез по возможности проходит по границе строки, чтобы не рвать
// форматированные блоки посередине.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := start + messageLimit
		if end >= len(runes) {
			end = len(runes)
		} else if nl := lastNewlineBefore(runes, start, end); nl > start {
			end = nl
		}

		if chunk := strings.Trim(string(runes[start:end]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}

		start = end
		for start < len(runes) && runes[start] == '\n' {
			start++
		}
	}
	return parts
}

func lastNewlineBefore(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	return -1
}
