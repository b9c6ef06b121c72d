package model

// ReactionEvent is the wire payload for a reaction toggle.
type ReactionEvent struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

// ReadReceipt is the wire payload marking a message as read by a user.
type ReadReceipt struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// PollVoteEvent is the wire payload for a poll vote toggle.
type PollVoteEvent struct {
	MessageID string `json:"messageId"`
	OptionID  string `json:"optionId"`
	UserID    string `json:"userId"`
}

// TypingEvent is the wire payload for the ephemeral typing indicator.
type TypingEvent struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp int64  `json:"timestamp"`
}

// Heartbeat is the wire payload for periodic liveness broadcasts. It is a
// partial User: a heartbeat that only reports liveness omits the optional
// profile fields and must not erase previously-known values on merge.
type Heartbeat struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Avatar            string `json:"avatar"`
	ClassCode         string `json:"classCode"`
	TargetDaysPerWeek int    `json:"targetDaysPerWeek,omitempty"`
	LastSeen          int64  `json:"lastSeen"`
	ExamName          string `json:"examName,omitempty"`
	ExamDate          string `json:"examDate,omitempty"`
	Theme             string `json:"theme,omitempty"`
}
