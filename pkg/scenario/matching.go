package scenario

import (
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// ModuleDialogManager is the reply module whose content must match exactly on replay.
const ModuleDialogManager = "dialogManager"

// FindMismatch compares a received step with the expected one.
// Returns nil when they match.
//
// Replies are aligned by position. Every reply must come from the same source;
// only dialogManager replies must also carry identical content. Replies from
// other modules (qna and the rest) may vary in wording between runs.
func FindMismatch(expected, received *models.DialogStep) *models.ScenarioMismatch {
	if expected == nil || received == nil || expected.UserMessage != received.UserMessage {
		return &models.ScenarioMismatch{
			Reason:   ReasonInvalidStep,
			Expected: expected,
			Received: received,
		}
	}

	count := max(len(expected.BotReplies), len(received.BotReplies))
	for i := 0; i < count; i++ {
		if i >= len(expected.BotReplies) || i >= len(received.BotReplies) {
			return mismatchAt(ReasonMissingReply, expected, received, i)
		}

		want := expected.BotReplies[i]
		got := received.BotReplies[i]

		sameSource := want.ReplySource == got.ReplySource
		if !sameSource || (want.Module() == ModuleDialogManager && !want.SameResponse(got)) {
			return mismatchAt(ReasonInvalidReply, expected, received, i)
		}
	}

	return nil
}

func mismatchAt(reason string, expected, received *models.DialogStep, index int) *models.ScenarioMismatch {
	return &models.ScenarioMismatch{
		Reason:   reason,
		Expected: expected,
		Received: received,
		Index:    &index,
	}
}
