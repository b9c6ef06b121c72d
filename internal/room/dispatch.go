package room

import (
	"encoding/json"
	"strings"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"github.com/bunkmate-app/bunkmate/backend/internal/transport"
	"go.uber.org/zap"
)

// dispatch routes one inbound (channel, payload) pair to the matching merge
// path. Events originating from this device are ignored (the broker echoes
// our own publishes back on the wildcard subscription), malformed payloads
// are dropped without surfacing an error, and unknown channel suffixes are
// ignored so newer clients can add event types without breaking old ones.
func (s *Session) dispatch(channel string, payload []byte) {
	switch {
	case channel == transport.ChannelHeartbeat:
		s.handleHeartbeat(payload)
	case channel == transport.ChannelStatus:
		s.handleStatus(payload)
	case channel == transport.ChannelMessage:
		s.handleMessage(payload)
	case channel == transport.ChannelTyping:
		s.handleTyping(payload)
	case channel == transport.ChannelReaction:
		s.handleReaction(payload)
	case channel == transport.ChannelRead:
		s.handleRead(payload)
	case channel == transport.ChannelPollVote:
		s.handlePollVote(payload)
	case strings.HasPrefix(channel, transport.ChannelEvent+"/"):
		s.handleEvent(payload)
	}
}

func (s *Session) handleHeartbeat(payload []byte) {
	var beat model.Heartbeat
	if err := json.Unmarshal(payload, &beat); err != nil || beat.ID == "" {
		s.dropPayload(transport.ChannelHeartbeat, err)
		return
	}
	if beat.ID == s.self.ID {
		return
	}
	if _, err := s.store.UpsertRemoteUser(beat); err != nil {
		s.logger.Error("heartbeat merge failed", zap.String("user_id", beat.ID), zap.Error(err))
		return
	}
	s.notify(UpdateUsers)
}

func (s *Session) handleStatus(payload []byte) {
	var status model.DailyStatus
	if err := json.Unmarshal(payload, &status); err != nil || status.UserID == "" || !status.Status.Valid() {
		s.dropPayload(transport.ChannelStatus, err)
		return
	}
	// A zero or negative timestamp would win no merge but could still
	// overwrite an empty slot with garbage.
	if _, err := model.NewEpochMillis(status.Timestamp); err != nil {
		s.dropPayload(transport.ChannelStatus, err)
		return
	}
	if status.UserID == s.self.ID {
		return
	}
	accepted, err := s.store.SaveRemoteStatus(status)
	if err != nil {
		s.logger.Error("status merge failed",
			zap.String("user_id", status.UserID), zap.String("date", status.Date), zap.Error(err))
		return
	}
	if accepted {
		s.notify(UpdateStatuses)
	}
}

func (s *Session) handleMessage(payload []byte) {
	var msg model.Message
	if err := json.Unmarshal(payload, &msg); err != nil || msg.ID == "" {
		s.dropPayload(transport.ChannelMessage, err)
		return
	}
	if msg.UserID == s.self.ID {
		return
	}
	if _, err := s.store.SaveMessage(msg); err != nil {
		s.logger.Error("message merge failed", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	s.notify(UpdateMessages)
}

func (s *Session) handleTyping(payload []byte) {
	var typing model.TypingEvent
	if err := json.Unmarshal(payload, &typing); err != nil || typing.UserID == "" {
		s.dropPayload(transport.ChannelTyping, err)
		return
	}
	if typing.UserID == s.self.ID || !typing.IsTyping {
		return
	}
	s.mu.Lock()
	s.typing[typing.UserID] = model.TypingStatus{
		UserID:    typing.UserID,
		UserName:  typing.UserName,
		Timestamp: typing.Timestamp,
	}
	s.mu.Unlock()
	s.notify(UpdateTyping)
}

func (s *Session) handleReaction(payload []byte) {
	var event model.ReactionEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.MessageID == "" || event.UserID == "" {
		s.dropPayload(transport.ChannelReaction, err)
		return
	}
	if event.UserID == s.self.ID {
		return
	}
	if _, err := s.store.ToggleReaction(event.MessageID, event.Emoji, event.UserID); err != nil {
		s.logger.Error("reaction merge failed", zap.String("message_id", event.MessageID), zap.Error(err))
		return
	}
	s.notify(UpdateMessages)
}

func (s *Session) handleRead(payload []byte) {
	var receipt model.ReadReceipt
	if err := json.Unmarshal(payload, &receipt); err != nil || receipt.MessageID == "" || receipt.UserID == "" {
		s.dropPayload(transport.ChannelRead, err)
		return
	}
	if receipt.UserID == s.self.ID {
		return
	}
	if _, err := s.store.MarkMessageRead(receipt.MessageID, receipt.UserID); err != nil {
		s.logger.Error("read receipt merge failed", zap.String("message_id", receipt.MessageID), zap.Error(err))
		return
	}
	s.notify(UpdateMessages)
}

func (s *Session) handlePollVote(payload []byte) {
	var vote model.PollVoteEvent
	if err := json.Unmarshal(payload, &vote); err != nil || vote.MessageID == "" || vote.UserID == "" {
		s.dropPayload(transport.ChannelPollVote, err)
		return
	}
	if vote.UserID == s.self.ID {
		return
	}
	if _, err := s.store.ApplyPollVote(vote.MessageID, vote.OptionID, vote.UserID); err != nil {
		s.logger.Error("poll vote merge failed", zap.String("message_id", vote.MessageID), zap.Error(err))
		return
	}
	s.notify(UpdateMessages)
}

func (s *Session) handleEvent(payload []byte) {
	var event model.CalendarEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.ID == "" || !event.Type.Valid() {
		s.dropPayload(transport.ChannelEvent, err)
		return
	}
	added, err := s.store.SaveEvent(event)
	if err != nil {
		s.logger.Error("event merge failed", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if added {
		s.notify(UpdateEvents)
	}
}

func (s *Session) dropPayload(channel string, err error) {
	// Parse failures are never fatal to the pipeline.
	s.logger.Debug("dropping malformed payload", zap.String("channel", channel), zap.Error(err))
}
