package exercise

import (
	"fmt"
	"strings"
)

// AskTitlePrompt is sent after the exercise to obtain a short title
const AskTitlePrompt = "Give this exercise a short title. Reply with the title only."

// UntitledFallback is shown for exercises whose title reply was blank
const UntitledFallback = "Untitled exercise"

// QuestionPrompt builds the opening request for an exercise.
func QuestionPrompt(level, topic, duration string) string {
	return fmt.Sprintf(
		"Give me a %s %s coding exercise that takes approximately %s.\nJust ask the question, do not show any code.",
		level, topic, duration,
	)
}

// FallbackTitle is the display title used when the model returns no title
func FallbackTitle(level, topic string) string {
	return fmt.Sprintf("%s %s exercise", level, topic)
}

// FormatTitle cleans a raw title reply for display.
// It trims whitespace, drops a leading "Title:" label in any case,
// and strips one pair of surrounding double or single quotes.
func FormatTitle(raw string) string {
	title := strings.TrimSpace(raw)

	const label = "title:"
	if len(title) >= len(label) && strings.EqualFold(title[:len(label)], label) {
		title = strings.TrimSpace(title[len(label):])
	}

	if len(title) >= 2 {
		first, last := title[0], title[len(title)-1]
		if (first == '"' || first == '\'') && first == last {
			title = strings.TrimSpace(title[1 : len(title)-1])
		}
	}
	return title
}

// DisplayTitle cleans raw and falls back when nothing is left
func DisplayTitle(raw, fallback string) string {
	if title := FormatTitle(raw); title != "" {
		return title
	}
	return fallback
}
