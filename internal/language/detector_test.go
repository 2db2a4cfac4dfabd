package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectScripts(t *testing.T) {
	d := NewRangeDetector()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"hindi", "नमस्ते, आप कैसे हैं? यह एक परीक्षण है।", "hi"},
		{"arabic", "مرحبا كيف حالك اليوم", "ar"},
		{"russian", "Привет, как дела? Это тест.", "ru"},
		{"korean", "안녕하세요 오늘 날씨가 좋네요", "ko"},
		{"japanese kana", "こんにちは、元気ですか。テストです。", "ja"},
		{"chinese", "今天天气很好我们去公园", "zh"},
		{"spanish diacritics", "¿Cómo estás? Mañana será otro día más", "es"},
		{"french diacritics", "C'est déjà l'été, où êtes-vous allés à Château dans la forêt française", "fr"},
		{"german umlauts", "Schöne Grüße aus München, tschüß düse süße", "de"},
		{"plain english baseline", "the quick brown fox jumps over the lazy dog", "en"},
		{"empty baseline", "", "en"},
		{"digits baseline", "1234567890 !!!", "en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Detect(tc.text))
		})
	}
}

func TestDetectMixedTextHighestScoreWins(t *testing.T) {
	d := NewRangeDetector()
	// A short English phrase inside an otherwise Russian transcript.
	text := "Привет всем слушателям, сегодня мы обсуждаем hello world и многое другое про язык"
	assert.Equal(t, "ru", d.Detect(text))
}
