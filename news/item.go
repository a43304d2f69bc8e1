package news

import (
	"strconv"
	"strings"
)

// SummaryPrefix 每条格式化摘要的固定前缀
const SummaryPrefix = "News summary: "

// Item is one market news entry. Items are values and never mutated after load.
type Item struct {
	Title          string  `json:"title" yaml:"title"`
	Summary        string  `json:"summary" yaml:"summary"`
	SentimentScore float64 `json:"overall_sentiment_score" yaml:"overall_sentiment_score"`
}

// Format renders an item as a single summary line.
func Format(item Item) string {
	var b strings.Builder
	b.WriteString(SummaryPrefix)
	b.WriteString(item.Title)
	b.WriteString(". ")
	b.WriteString(item.Summary)
	b.WriteString(" overall_sentiment_score: ")
	b.WriteString(strconv.FormatFloat(item.SentimentScore, 'f', -1, 64))
	return b.String()
}

var fixture = []Item{
	{
		Title:          "Palantir CEO Says Our Generation's Main Challenge Could Be AI Against Humanity - And Arrive Sooner Than You Think - Palantir Technologies  ( NYSE:PLTR ) ",
		Summary:        "Christopher Nolan's blockbuster movie \"Oppenheimer\" has reignited the public discourse surrounding the United States' use of a weapon on Japan at the end of World War II.",
		SentimentScore: 0.009687,
	},
	{
		Title:          `3 "Hedge Fund Hotels" Pulling into Support`,
		Summary:        "Institutional quality stocks have several benefits including high-liquidity, low beta, and a long runway. Strategist Andrew Rocco breaks down what investors should look for and pitches 3 ideas.",
		SentimentScore: 0.219747,
	},
	{
		Title:          "PDFgear, Bringing a Completely-Free PDF Text Editing Feature",
		Summary:        "LOS ANGELES, July 26, 2023 /PRNewswire/ -- PDFgear, a leading provider of PDF solutions, announced a piece of exciting news for everyone who works extensively with PDF documents.",
		SentimentScore: 0.360071,
	},
	{
		Title:          "Researchers Pitch 'Immunizing' Images Against Deepfake Manipulation",
		Summary:        "A team at MIT says injecting tiny disruptive bits of code can cause distorted deepfake images.",
		SentimentScore: -0.026894,
	},
	{
		Title:          "Nvidia wins again - plus two more takeaways from this week's mega-cap earnings",
		Summary:        "We made some key conclusions combing through quarterly results for Microsoft and Alphabet and listening to their conference calls with investors.",
		SentimentScore: 0.235177,
	},
}

// Fixture returns a copy of the built-in news items in feed order.
func Fixture() []Item {
	out := make([]Item, len(fixture))
	copy(out, fixture)
	return out
}
