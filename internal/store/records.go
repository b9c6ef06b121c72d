package store

import (
	"encoding/json"
	"fmt"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
)

// UserRecord persists one known user profile.
type UserRecord struct {
	UserID            string `gorm:"column:user_id;primaryKey;size:190;not null"`
	Name              string `gorm:"column:name;size:320;not null"`
	Avatar            string `gorm:"column:avatar;size:512"`
	ClassCode         string `gorm:"column:class_code;size:190;not null;index"`
	TargetDaysPerWeek int    `gorm:"column:target_days_per_week;not null;default:4"`
	LastSeenMillis    int64  `gorm:"column:last_seen_ms;not null;default:0"`
	ExamName          string `gorm:"column:exam_name;size:320"`
	ExamDate          string `gorm:"column:exam_date;size:10"`
	Theme             string `gorm:"column:theme;size:32"`
	IsSelf            bool   `gorm:"column:is_self;not null;default:false"`
}

// TableName provides the explicit table binding for GORM.
func (UserRecord) TableName() string {
	return "users"
}

// StatusRecord persists one attendance intent keyed by (user, date).
type StatusRecord struct {
	UserID          string `gorm:"column:user_id;primaryKey;size:190;not null"`
	Date            string `gorm:"column:date;primaryKey;size:10;not null"`
	Status          string `gorm:"column:status;size:16;not null"`
	Note            string `gorm:"column:note;type:text"`
	TimestampMillis int64  `gorm:"column:timestamp_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (StatusRecord) TableName() string {
	return "daily_statuses"
}

// MessageRecord persists one chat message. Nested collaborative state
// (reply snapshot, reactions, read set, poll) is stored as JSON text.
type MessageRecord struct {
	MessageID       string `gorm:"column:message_id;primaryKey;size:190;not null"`
	UserID          string `gorm:"column:user_id;size:190;not null"`
	UserName        string `gorm:"column:user_name;size:320;not null"`
	Avatar          string `gorm:"column:avatar;size:512"`
	Text            string `gorm:"column:text;type:text;not null"`
	TimestampMillis int64  `gorm:"column:timestamp_ms;not null;index"`
	ReplyJSON       string `gorm:"column:reply_json;type:text"`
	ReactionsJSON   string `gorm:"column:reactions_json;type:text"`
	ReadByJSON      string `gorm:"column:read_by_json;type:text"`
	PollJSON        string `gorm:"column:poll_json;type:text"`
}

// TableName provides the explicit table binding for GORM.
func (MessageRecord) TableName() string {
	return "messages"
}

// EventRecord persists one shared calendar event.
type EventRecord struct {
	EventID         string `gorm:"column:event_id;primaryKey;size:190;not null"`
	Title           string `gorm:"column:title;size:320;not null"`
	Date            string `gorm:"column:date;size:10;not null;index"`
	Type            string `gorm:"column:type;size:16;not null"`
	CreatedBy       string `gorm:"column:created_by;size:320;not null"`
	TimestampMillis int64  `gorm:"column:timestamp_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EventRecord) TableName() string {
	return "calendar_events"
}

func userToRecord(user model.User) UserRecord {
	return UserRecord{
		UserID:            user.ID,
		Name:              user.Name,
		Avatar:            user.Avatar,
		ClassCode:         user.ClassCode,
		TargetDaysPerWeek: user.TargetDaysPerWeek,
		LastSeenMillis:    user.LastSeen,
		ExamName:          user.ExamName,
		ExamDate:          user.ExamDate,
		Theme:             user.Theme,
		IsSelf:            user.IsSelf,
	}
}

func recordToUser(record UserRecord) model.User {
	return model.User{
		ID:                record.UserID,
		Name:              record.Name,
		Avatar:            record.Avatar,
		ClassCode:         record.ClassCode,
		TargetDaysPerWeek: record.TargetDaysPerWeek,
		LastSeen:          record.LastSeenMillis,
		ExamName:          record.ExamName,
		ExamDate:          record.ExamDate,
		Theme:             record.Theme,
		IsSelf:            record.IsSelf,
	}
}

func statusToRecord(status model.DailyStatus) StatusRecord {
	return StatusRecord{
		UserID:          status.UserID,
		Date:            status.Date,
		Status:          string(status.Status),
		Note:            status.Note,
		TimestampMillis: status.Timestamp,
	}
}

func recordToStatus(record StatusRecord) model.DailyStatus {
	return model.DailyStatus{
		UserID:    record.UserID,
		Date:      record.Date,
		Status:    model.StatusType(record.Status),
		Note:      record.Note,
		Timestamp: record.TimestampMillis,
	}
}

func messageToRecord(msg model.Message) (MessageRecord, error) {
	record := MessageRecord{
		MessageID:       msg.ID,
		UserID:          msg.UserID,
		UserName:        msg.UserName,
		Avatar:          msg.Avatar,
		Text:            msg.Text,
		TimestampMillis: msg.Timestamp,
	}

	if msg.ReplyTo != nil {
		encoded, err := json.Marshal(msg.ReplyTo)
		if err != nil {
			return MessageRecord{}, fmt.Errorf("store: encode reply snapshot: %w", err)
		}
		record.ReplyJSON = string(encoded)
	}
	if msg.Reactions != nil {
		encoded, err := json.Marshal(msg.Reactions)
		if err != nil {
			return MessageRecord{}, fmt.Errorf("store: encode reactions: %w", err)
		}
		record.ReactionsJSON = string(encoded)
	}
	if msg.ReadBy != nil {
		encoded, err := json.Marshal(msg.ReadBy)
		if err != nil {
			return MessageRecord{}, fmt.Errorf("store: encode read set: %w", err)
		}
		record.ReadByJSON = string(encoded)
	}
	if msg.Poll != nil {
		encoded, err := json.Marshal(msg.Poll)
		if err != nil {
			return MessageRecord{}, fmt.Errorf("store: encode poll: %w", err)
		}
		record.PollJSON = string(encoded)
	}

	return record, nil
}

func recordToMessage(record MessageRecord) (model.Message, error) {
	msg := model.Message{
		ID:        record.MessageID,
		UserID:    record.UserID,
		UserName:  record.UserName,
		Avatar:    record.Avatar,
		Text:      record.Text,
		Timestamp: record.TimestampMillis,
	}

	if record.ReplyJSON != "" {
		var reply model.ReplyRef
		if err := json.Unmarshal([]byte(record.ReplyJSON), &reply); err != nil {
			return model.Message{}, fmt.Errorf("store: decode reply snapshot for %s: %w", record.MessageID, err)
		}
		msg.ReplyTo = &reply
	}
	if record.ReactionsJSON != "" {
		if err := json.Unmarshal([]byte(record.ReactionsJSON), &msg.Reactions); err != nil {
			return model.Message{}, fmt.Errorf("store: decode reactions for %s: %w", record.MessageID, err)
		}
	}
	if record.ReadByJSON != "" {
		if err := json.Unmarshal([]byte(record.ReadByJSON), &msg.ReadBy); err != nil {
			return model.Message{}, fmt.Errorf("store: decode read set for %s: %w", record.MessageID, err)
		}
	}
	if record.PollJSON != "" {
		var poll model.Poll
		if err := json.Unmarshal([]byte(record.PollJSON), &poll); err != nil {
			return model.Message{}, fmt.Errorf("store: decode poll for %s: %w", record.MessageID, err)
		}
		msg.Poll = &poll
	}

	return msg, nil
}

func eventToRecord(event model.CalendarEvent) EventRecord {
	return EventRecord{
		EventID:         event.ID,
		Title:           event.Title,
		Date:            event.Date,
		Type:            string(event.Type),
		CreatedBy:       event.CreatedBy,
		TimestampMillis: event.Timestamp,
	}
}

func recordToEvent(record EventRecord) model.CalendarEvent {
	return model.CalendarEvent{
		ID:        record.EventID,
		Title:     record.Title,
		Date:      record.Date,
		Type:      model.EventType(record.Type),
		CreatedBy: record.CreatedBy,
		Timestamp: record.TimestampMillis,
	}
}
