package slack

import (
	"fmt"
	"strings"

	goslack "github.com/slack-go/slack"
)

const maxBlockTextLength = 2900

// RunFailure describes one failed scenario replay.
type RunFailure struct {
	Scenario       string
	Reason         string
	CompletedSteps int
}

// BuildSessionHeader creates the blocks of the message failures of one replay
// session are threaded under.
func BuildSessionHeader(sessionID, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(":x: *Scenario replay failures* (session `%s`)", sessionID)
	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
	if dashboardURL != "" {
		btn := goslack.NewButtonBlockElement("", "", goslack.NewTextBlockObject(goslack.PlainTextType, "View Scenarios", false, false))
		btn.URL = strings.TrimRight(dashboardURL, "/") + "/scenarios"
		blocks = append(blocks, goslack.NewActionBlock("", btn))
	}
	return blocks
}

// BuildRunFailedMessage creates Block Kit blocks for one failed replay.
func BuildRunFailedMessage(f RunFailure) []goslack.Block {
	headline := fmt.Sprintf("*%s* failed", f.Scenario)
	if f.CompletedSteps > 0 {
		headline += fmt.Sprintf(" after %d completed %s", f.CompletedSteps, plural(f.CompletedSteps, "step", "steps"))
	}
	text := headline + "\n\n*Reason:*\n" + truncateForSlack(f.Reason)
	return []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// truncateForSlack cuts text to the Block Kit limit without splitting runes.
func truncateForSlack(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBlockTextLength {
		return text
	}
	return string(runes[:maxBlockTextLength]) + "\n\n_... (truncated)_"
}
