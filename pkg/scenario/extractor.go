// Package scenario records, reconstructs and replays conversation scenarios
// against a live dialog pipeline.
//
// The Recorder captures turns live for one chat target, the Builder
// reconstructs a scenario from the stored event log, and the Runner replays
// scenarios and compares every observed turn with the recorded one.
package scenario

import (
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// ExtractStep converts a session history into a single dialog step.
// When eventID is set, only history entries tagged with it are used.
// Returns nil when nothing matches; callers must skip the turn.
func ExtractStep(history []models.HistoryEntry, eventID string) *models.DialogStep {
	entries := history
	if eventID != "" {
		entries = make([]models.HistoryEntry, 0, len(history))
		for _, entry := range history {
			if entry.EventID == eventID {
				entries = append(entries, entry)
			}
		}
	}
	if len(entries) == 0 {
		return nil
	}

	step := &models.DialogStep{
		UserMessage: entries[0].IncomingPreview,
		BotReplies:  make([]models.BotReply, 0, len(entries)),
	}
	for _, entry := range entries {
		response := entry.ReplyPreview
		if len(response) == 0 {
			response = models.NullResponse
		}
		step.BotReplies = append(step.BotReplies, models.BotReply{
			BotResponse: response,
			ReplySource: entry.ReplySource,
		})
	}
	return step
}
