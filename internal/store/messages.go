package store

import (
	"sort"

	"github.com/bunkmate-app/bunkmate/backend/internal/merge"
	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// messageRetentionLimit caps the stored chat history; the oldest message is
// evicted first once the cap is exceeded.
const messageRetentionLimit = 100

// Messages returns a copy of the retained chat history, oldest first.
func (s *Store) Messages() ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureMessagesLocked(); err != nil {
		return nil, err
	}
	return s.copyMessagesLocked(), nil
}

// SaveMessage appends a new message or reconciles an incoming payload with
// the stored record of the same id, then enforces the retention cap. It is
// used for both local sends and remote arrivals; the reconcile policy makes
// the operation idempotent. Returns the updated collection.
func (s *Store) SaveMessage(msg model.Message) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureMessagesLocked(); err != nil {
		return nil, err
	}

	var existing *model.Message
	index := -1
	for i := range s.messages {
		if s.messages[i].ID == msg.ID {
			existing = &s.messages[i]
			index = i
			break
		}
	}

	mergedMsg := merge.ReconcileMessage(existing, msg)

	var evict *model.Message
	if index == -1 && len(s.messages) >= messageRetentionLimit {
		oldest := s.messages[0]
		evict = &oldest
	}

	record, err := messageToRecord(mergedMsg)
	if err != nil {
		s.logError(opSaveMessage, "encode_failed", err, zap.String("message_id", msg.ID))
		return nil, newStoreError(opSaveMessage, "encode_failed", err)
	}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&record).Error; err != nil {
			return err
		}
		if evict != nil {
			return tx.Delete(&MessageRecord{MessageID: evict.ID}).Error
		}
		return nil
	})
	if txErr != nil {
		s.logError(opSaveMessage, "write_failed", txErr, zap.String("message_id", msg.ID))
		return nil, newStoreError(opSaveMessage, "write_failed", txErr)
	}

	if index >= 0 {
		s.messages[index] = mergedMsg
	} else {
		if evict != nil {
			s.messages = s.messages[1:]
		}
		s.messages = append(s.messages, mergedMsg)
	}
	return s.copyMessagesLocked(), nil
}

// ToggleReaction applies the single-active-reaction toggle to the stored
// message. Unknown message ids are ignored and the collection is returned
// unchanged.
func (s *Store) ToggleReaction(messageID, emoji, userID string) ([]model.Message, error) {
	return s.updateMessage(messageID, func(msg model.Message) model.Message {
		return merge.ToggleReaction(msg, emoji, userID)
	})
}

// ApplyPollVote applies the vote toggle to the stored message's poll.
func (s *Store) ApplyPollVote(messageID, optionID, userID string) ([]model.Message, error) {
	return s.updateMessage(messageID, func(msg model.Message) model.Message {
		return merge.ApplyPollVote(msg, optionID, userID)
	})
}

// MarkMessageRead adds the user to the stored message's read set.
func (s *Store) MarkMessageRead(messageID, userID string) ([]model.Message, error) {
	return s.updateMessage(messageID, func(msg model.Message) model.Message {
		return merge.MarkRead(msg, userID)
	})
}

func (s *Store) updateMessage(messageID string, apply func(model.Message) model.Message) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureMessagesLocked(); err != nil {
		return nil, err
	}

	index := -1
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			index = i
			break
		}
	}
	if index == -1 {
		return s.copyMessagesLocked(), nil
	}

	updated := apply(s.messages[index])

	record, err := messageToRecord(updated)
	if err != nil {
		s.logError(opSaveMessage, "encode_failed", err, zap.String("message_id", messageID))
		return nil, newStoreError(opSaveMessage, "encode_failed", err)
	}
	if err := s.db.Save(&record).Error; err != nil {
		s.logError(opSaveMessage, "write_failed", err, zap.String("message_id", messageID))
		return nil, newStoreError(opSaveMessage, "write_failed", err)
	}

	s.messages[index] = updated
	return s.copyMessagesLocked(), nil
}

func (s *Store) ensureMessagesLocked() error {
	if s.messagesLoaded {
		return nil
	}
	var records []MessageRecord
	if err := s.db.Order("timestamp_ms ASC").Find(&records).Error; err != nil {
		s.logError(opLoadMessages, "query_failed", err)
		return newStoreError(opLoadMessages, "query_failed", err)
	}
	messages := make([]model.Message, 0, len(records))
	for _, record := range records {
		msg, err := recordToMessage(record)
		if err != nil {
			s.logError(opLoadMessages, "decode_failed", err, zap.String("message_id", record.MessageID))
			return newStoreError(opLoadMessages, "decode_failed", err)
		}
		messages = append(messages, msg)
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
	s.messages = messages
	s.messagesLoaded = true
	return nil
}

func (s *Store) copyMessagesLocked() []model.Message {
	messages := make([]model.Message, len(s.messages))
	copy(messages, s.messages)
	return messages
}
