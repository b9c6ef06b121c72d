package merge

import (
	"slices"
	"sort"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

// ReconcileMessage combines a locally-held message with an incoming remote
// payload carrying the same id. Field policy:
//
//   - Reactions are replaced wholesale only when the incoming payload
//     actually carries a reactions map; a bare send never wipes them.
//   - ReadBy is the set union of both sides and only grows.
//   - Poll state follows the incoming payload only when explicitly supplied.
//
// The merge is idempotent: applying the same payload twice yields the same
// state as applying it once.
func ReconcileMessage(existing *model.Message, incoming model.Message) model.Message {
	if existing == nil {
		return incoming
	}

	updated := incoming
	if incoming.Reactions == nil {
		updated.Reactions = cloneReactions(existing.Reactions)
	}
	updated.ReadBy = unionSorted(existing.ReadBy, incoming.ReadBy)
	if incoming.Poll == nil {
		updated.Poll = existing.Poll
	}
	return updated
}

// ToggleReaction realizes the single-active-reaction rule: the user is first
// removed from every emoji's set on the message, then re-added under the new
// emoji unless they had already reacted with that exact emoji (in which case
// the toggle is an un-react). Emoji keys left with no reactors are dropped.
func ToggleReaction(msg model.Message, emoji, userID string) model.Message {
	reactions := cloneReactions(msg.Reactions)
	if reactions == nil {
		reactions = map[string][]string{}
	}

	alreadyReacted := slices.Contains(reactions[emoji], userID)

	for key, voters := range reactions {
		filtered := removeString(voters, userID)
		if len(filtered) == 0 {
			delete(reactions, key)
		} else {
			reactions[key] = filtered
		}
	}

	if !alreadyReacted {
		reactions[emoji] = append(reactions[emoji], userID)
	}

	updated := msg
	updated.Reactions = reactions
	return updated
}

// ApplyPollVote toggles a user's vote on one poll option. Voting the option
// again removes the vote; with AllowMultiple disabled, a new vote atomically
// clears the user from every other option first. Messages without a poll, or
// votes naming an unknown option, pass through unchanged.
func ApplyPollVote(msg model.Message, optionID, userID string) model.Message {
	if msg.Poll == nil {
		return msg
	}

	optionIndex := -1
	for i, opt := range msg.Poll.Options {
		if opt.ID == optionID {
			optionIndex = i
			break
		}
	}
	if optionIndex == -1 {
		return msg
	}

	unvoting := slices.Contains(msg.Poll.Options[optionIndex].Votes, userID)

	options := make([]model.PollOption, len(msg.Poll.Options))
	for i, opt := range msg.Poll.Options {
		votes := slices.Clone(opt.Votes)
		switch {
		case opt.ID == optionID && unvoting:
			votes = removeString(votes, userID)
		case opt.ID == optionID:
			votes = append(votes, userID)
		case !msg.Poll.AllowMultiple && !unvoting:
			votes = removeString(votes, userID)
		}
		options[i] = model.PollOption{ID: opt.ID, Text: opt.Text, Votes: votes}
	}

	poll := model.Poll{
		Question:      msg.Poll.Question,
		Options:       options,
		AllowMultiple: msg.Poll.AllowMultiple,
	}
	updated := msg
	updated.Poll = &poll
	return updated
}

// MarkRead adds the user to the message's read set. The set is monotonic: a
// reader is never removed, and marking twice is a no-op.
func MarkRead(msg model.Message, userID string) model.Message {
	if slices.Contains(msg.ReadBy, userID) {
		return msg
	}
	updated := msg
	updated.ReadBy = append(slices.Clone(msg.ReadBy), userID)
	return updated
}

func cloneReactions(reactions map[string][]string) map[string][]string {
	if reactions == nil {
		return nil
	}
	cloned := make(map[string][]string, len(reactions))
	for emoji, voters := range reactions {
		cloned[emoji] = slices.Clone(voters)
	}
	return cloned
}

func unionSorted(left, right []string) []string {
	if len(left) == 0 && len(right) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(left)+len(right))
	merged := make([]string, 0, len(left)+len(right))
	for _, value := range left {
		if _, ok := seen[value]; !ok {
			seen[value] = struct{}{}
			merged = append(merged, value)
		}
	}
	for _, value := range right {
		if _, ok := seen[value]; !ok {
			seen[value] = struct{}{}
			merged = append(merged, value)
		}
	}
	sort.Strings(merged)
	return merged
}

func removeString(values []string, target string) []string {
	filtered := values[:0:0]
	for _, value := range values {
		if value != target {
			filtered = append(filtered, value)
		}
	}
	return filtered
}
