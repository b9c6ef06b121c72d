package model

// StatusType enumerates the attendance intents a user can declare for a day.
type StatusType string

const (
	// StatusGoing marks an intent to attend.
	StatusGoing StatusType = "GOING"
	// StatusNotGoing marks an intent to skip.
	StatusNotGoing StatusType = "NOT_GOING"
	// StatusUndecided is the default state before a user has declared.
	StatusUndecided StatusType = "UNDECIDED"
)

// Valid reports whether the value is one of the known attendance intents.
func (s StatusType) Valid() bool {
	switch s {
	case StatusGoing, StatusNotGoing, StatusUndecided:
		return true
	}
	return false
}

// EventType enumerates calendar event severities.
type EventType string

const (
	EventCritical  EventType = "CRITICAL"
	EventImportant EventType = "IMPORTANT"
	EventInfo      EventType = "INFO"
	EventFun       EventType = "FUN"
)

// Valid reports whether the value is one of the known event types.
func (e EventType) Valid() bool {
	switch e {
	case EventCritical, EventImportant, EventInfo, EventFun:
		return true
	}
	return false
}

// User is the profile record shared across devices. LastSeen is epoch
// milliseconds from the most recent heartbeat. IsSelf marks the identity
// owned by this device and never travels over the wire.
type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Avatar            string `json:"avatar"`
	ClassCode         string `json:"classCode"`
	TargetDaysPerWeek int    `json:"targetDaysPerWeek"`
	LastSeen          int64  `json:"lastSeen,omitempty"`
	ExamName          string `json:"examName,omitempty"`
	ExamDate          string `json:"examDate,omitempty"`
	Theme             string `json:"theme,omitempty"`
	IsSelf            bool   `json:"-"`
	Online            bool   `json:"-"`
}

// ProfileUpdate carries the optional fields a user may edit locally.
// Nil pointers leave the stored value untouched.
type ProfileUpdate struct {
	Name              *string
	Avatar            *string
	TargetDaysPerWeek *int
	ExamName          *string
	ExamDate          *string
	Theme             *string
}

// DailyStatus records one user's attendance intent for one calendar date.
// At most one record exists per (UserID, Date); conflicts resolve by the
// larger Timestamp.
type DailyStatus struct {
	UserID    string     `json:"userId"`
	Date      string     `json:"date"`
	Status    StatusType `json:"status"`
	Note      string     `json:"note,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

// ReplyRef is a denormalized snapshot of the message being replied to.
type ReplyRef struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
	Text     string `json:"text"`
}

// PollOption is one votable choice inside a poll. Votes holds user ids.
type PollOption struct {
	ID    string   `json:"id"`
	Text  string   `json:"text"`
	Votes []string `json:"votes"`
}

// Poll is an embedded vote attached to a message. When AllowMultiple is
// false a user id appears in at most one option's vote set.
type Poll struct {
	Question      string       `json:"question"`
	Options       []PollOption `json:"options"`
	AllowMultiple bool         `json:"allowMultiple"`
}

// Message is a chat entry identified by a globally unique id. Reactions maps
// emoji to the set of user ids currently reacting with it; a user holds an
// active reaction under at most one emoji. ReadBy only grows.
type Message struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	UserName  string              `json:"userName"`
	Avatar    string              `json:"avatar"`
	Text      string              `json:"text"`
	Timestamp int64               `json:"timestamp"`
	ReplyTo   *ReplyRef           `json:"replyTo,omitempty"`
	Reactions map[string][]string `json:"reactions,omitempty"`
	ReadBy    []string            `json:"readBy,omitempty"`
	Poll      *Poll               `json:"poll,omitempty"`
}

// CalendarEvent is an append-only shared agenda entry, deduplicated by ID.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	Type      EventType `json:"type"`
	CreatedBy string    `json:"createdBy"`
	Timestamp int64     `json:"timestamp"`
}

// TypingStatus is an ephemeral typing indicator. It is never persisted and
// expires after a short TTL.
type TypingStatus struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Timestamp int64  `json:"timestamp"`
}

// AttendanceStats summarizes one user's decided history against their goal.
type AttendanceStats struct {
	TotalDays        int     `json:"totalDays"`
	PresentDays      int     `json:"presentDays"`
	Percentage       float64 `json:"percentage"`
	TargetPercentage float64 `json:"targetPercentage"`
}
