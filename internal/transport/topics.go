package transport

import "strings"

// topicPrefix scopes every channel to a room. The full scheme is
// room/<classCode>/<suffix>, with calendar events fanning out to a
// per-event suffix so the broker retains each one independently.
const topicPrefix = "room"

// Channel suffixes, one per event type.
const (
	ChannelStatus    = "status"
	ChannelMessage   = "message"
	ChannelHeartbeat = "heartbeat"
	ChannelTyping    = "typing"
	ChannelReaction  = "reaction"
	ChannelRead      = "read"
	ChannelPollVote  = "poll-vote"
	ChannelEvent     = "event"
)

// EventChannel returns the per-event suffix for a calendar event id.
func EventChannel(eventID string) string {
	return ChannelEvent + "/" + eventID
}

// Topic joins the room prefix, class code and channel suffix into a full
// broker topic.
func Topic(classCode, suffix string) string {
	return topicPrefix + "/" + classCode + "/" + suffix
}

// Wildcard returns the single subscription covering every channel of a room.
func Wildcard(classCode string) string {
	return topicPrefix + "/" + classCode + "/#"
}

// Suffix extracts the channel suffix from a full topic, reporting false when
// the topic does not belong to the given room.
func Suffix(topic, classCode string) (string, bool) {
	prefix := topicPrefix + "/" + classCode + "/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	return topic[len(prefix):], true
}
