package telegram

import (
	"strings"
	"testing"
)

func TestSplitMessagePrefersNewlineBoundary(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(strings.Repeat("а", 3000))
	builder.WriteString("\n\n")
	builder.WriteString(strings.Repeat("б", 2000))
	builder.WriteString("\n")
	builder.WriteString(strings.Repeat("в", 500))

	parts := SplitMessage(builder.String())
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	for i, part := range parts {
		if length := len([]rune(part)); length > messageLimit {
			t.Fatalf("часть %d превышает лимит: %d", i, length)
		}
	}
	if parts[0] != strings.Repeat("а", 3000) {
		t.Fatalf("первая часть должна заканчиваться на границе строки")
	}
	if !strings.HasSuffix(parts[1], strings.Repeat("в", 500)) {
		t.Fatalf("вторая часть должна содержать хвостовой блок")
	}
}

func TestSplitMessageHardSplitWithoutNewlines(t *testing.T) {
	parts := SplitMessage(strings.Repeat("я", messageLimit+100))
	if len(parts) != 2 {
		t.Fatalf("ожидали 2 части, получили %d", len(parts))
	}
	if length := len([]rune(parts[0])); length != messageLimit {
		t.Fatalf("первая часть должна быть ровно %d символов, получили %d", messageLimit, length)
	}
	if length := len([]rune(parts[1])); length != 100 {
		t.Fatalf("вторая часть должна быть 100 символов, получили %d", length)
	}
}

func TestSplitMessageShortText(t *testing.T) {
	text := "короткое сообщение"
	parts := SplitMessage(text)
	if len(parts) != 1 {
		t.Fatalf("ожидали одну часть, получили %d", len(parts))
	}
	if parts[0] != text {
		t.Fatalf("текст не должен меняться: %q", parts[0])
	}
}

func TestSplitMessageEmpty(t *testing.T) {
	if parts := SplitMessage("   \n  "); len(parts) != 0 {
		t.Fatalf("для пустого ввода частей быть не должно, получили %d", len(parts))
	}
}
