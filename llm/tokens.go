package llm

import (
	"unicode"
	"unicode/utf8"

	"github.com/BaSui01/marketstream/types"
)

// EstimateTokens approximates the token count of text without a vocabulary.
// CJK runs at ~1.5 chars/token, everything else at ~4 chars/token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}

	estimated := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

// EstimateMessageTokens adds ~4 tokens of framing per message and 3 for the reply primer.
func EstimateMessageTokens(messages []types.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + 4
	}
	return total + 3
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hangul, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
