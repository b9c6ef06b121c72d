// Package room ties the sync engine together for one signed-in identity:
// local mutation entry points that write to the store and publish to the
// broker, the inbound dispatcher that merges remote events, and the timer
// loops (heartbeat, presence refresh, typing sweep) that keep the room view
// converging.
package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bunkmate-app/bunkmate/backend/internal/merge"
	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"github.com/bunkmate-app/bunkmate/backend/internal/presence"
	"github.com/bunkmate-app/bunkmate/backend/internal/stats"
	"github.com/bunkmate-app/bunkmate/backend/internal/store"
	"github.com/bunkmate-app/bunkmate/backend/internal/transport"
	"go.uber.org/zap"
)

const (
	heartbeatInterval   = 5 * time.Second
	refreshInterval     = 3 * time.Second
	typingTTL           = 3 * time.Second
	typingSweepInterval = time.Second
	typingDebounce      = 2 * time.Second
)

// Transport is the broker surface the session publishes through. Satisfied
// by *transport.Adapter; tests substitute a fake.
type Transport interface {
	Connect(classCode string, onMessage transport.MessageHandler, onConnect func()) error
	Publish(channelSuffix string, payload any, class transport.DeliveryClass) error
	Wake()
	IsConnected() bool
	Disconnect()
}

// UpdateKind names the collection a dispatcher callback refers to.
type UpdateKind string

const (
	UpdateUsers    UpdateKind = "users"
	UpdateStatuses UpdateKind = "statuses"
	UpdateMessages UpdateKind = "messages"
	UpdateEvents   UpdateKind = "events"
	UpdateTyping   UpdateKind = "typing"
)

var (
	errMissingStore     = errors.New("room: store is required")
	errMissingTransport = errors.New("room: transport is required")
	errMissingIdentity  = errors.New("room: session identity is required")
	errSessionClosed    = errors.New("room: session is closed")
)

// Config describes the dependencies of a room session.
type Config struct {
	Store     *store.Store
	Transport Transport
	Presence  *presence.Tracker
	User      model.User
	Logger    *zap.Logger
	Clock     func() time.Time
	IDs       IDProvider

	// OnUpdate is the single callback the presentation layer registers to
	// learn that a collection changed. Optional.
	OnUpdate func(UpdateKind)
}

// Session is one logical membership of a room, from Connect to Disconnect.
type Session struct {
	store     *store.Store
	transport Transport
	presence  *presence.Tracker
	logger    *zap.Logger
	clock     func() time.Time
	ids       IDProvider
	onUpdate  func(UpdateKind)

	mu             sync.Mutex
	self           model.User
	typing         map[string]model.TypingStatus
	lastTypingSent time.Time
	cancelTimers   context.CancelFunc
	closed         bool
}

// NewSession validates dependencies and constructs a session for the given
// identity. The session is inert until Start.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Transport == nil {
		return nil, errMissingTransport
	}
	if cfg.User.ID == "" || cfg.User.ClassCode == "" {
		return nil, errMissingIdentity
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDs
	if ids == nil {
		ids = NewUUIDProvider()
	}
	tracker := cfg.Presence
	if tracker == nil {
		tracker = presence.New(clock)
	}
	self := cfg.User
	self.IsSelf = true
	return &Session{
		store:     cfg.Store,
		transport: cfg.Transport,
		presence:  tracker,
		logger:    logger,
		clock:     clock,
		ids:       ids,
		onUpdate:  cfg.OnUpdate,
		self:      self,
		typing:    map[string]model.TypingStatus{},
	}, nil
}

// Start connects the transport and launches the session timers. The wildcard
// subscription routes every inbound event through the dispatcher, and every
// (re)connect publishes an immediate heartbeat so peers learn about this
// device without waiting a full interval.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errSessionClosed
	}
	classCode := s.self.ClassCode
	timerCtx, cancel := context.WithCancel(ctx)
	s.cancelTimers = cancel
	s.mu.Unlock()

	if err := s.transport.Connect(classCode, s.dispatch, s.PublishHeartbeat); err != nil {
		cancel()
		return fmt.Errorf("room: connect: %w", err)
	}

	go s.runTimers(timerCtx)
	s.logger.Info("session started",
		zap.String("class_code", classCode),
		zap.String("user_id", s.self.ID))
	return nil
}

func (s *Session) runTimers(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatInterval)
	refresh := time.NewTicker(refreshInterval)
	sweep := time.NewTicker(typingSweepInterval)
	defer heartbeat.Stop()
	defer refresh.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			s.PublishHeartbeat()
		case <-refresh.C:
			// Presence is inferred, never pushed: re-derive online flags so
			// the view converges even when no heartbeat arrived.
			s.notify(UpdateUsers)
		case <-sweep.C:
			s.sweepTyping()
		}
	}
}

// Close ends the session: timers stop and the transport disconnects. No
// publish happens after Close returns; a later session needs a new Session.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancelTimers
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.transport.Disconnect()
	s.logger.Info("session closed", zap.String("user_id", s.self.ID))
}

// Logout closes the session and clears the store caches so the next
// sign-in starts cold.
func (s *Session) Logout() {
	s.Close()
	s.store.Reset()
}

// Wake forces a reconnect attempt plus heartbeat after the host application
// returns to the foreground.
func (s *Session) Wake() {
	s.transport.Wake()
	s.PublishHeartbeat()
}

// Connected reports broker connectivity for the passive offline indicator.
func (s *Session) Connected() bool {
	return s.transport.IsConnected()
}

// SaveStatus records the local user's attendance intent for a date and
// broadcasts it retained, so late joiners see current state. Local state is
// authoritative immediately; the publish is fire-and-forget.
func (s *Session) SaveStatus(statusType model.StatusType, date, note string) (model.DailyStatus, error) {
	if !statusType.Valid() {
		return model.DailyStatus{}, fmt.Errorf("room: invalid status %q", statusType)
	}
	if date == "" {
		date = model.DateString(s.clock())
	}
	status := model.DailyStatus{
		UserID:    s.self.ID,
		Date:      date,
		Status:    statusType,
		Note:      note,
		Timestamp: s.clock().UnixMilli(),
	}
	if err := s.store.SaveStatus(status); err != nil {
		return model.DailyStatus{}, err
	}
	s.publish(transport.ChannelStatus, status, transport.ReliableRetained)
	s.notify(UpdateStatuses)
	return status, nil
}

// SendMessage creates and broadcasts a chat message, optionally replying to
// another message or carrying a poll.
func (s *Session) SendMessage(text string, replyTo *model.ReplyRef, poll *model.Poll) (model.Message, error) {
	rawID, err := s.ids.NewID()
	if err != nil {
		return model.Message{}, fmt.Errorf("room: message id: %w", err)
	}
	msg := model.Message{
		ID:        "msg_" + rawID,
		UserID:    s.self.ID,
		UserName:  s.self.Name,
		Avatar:    s.self.Avatar,
		Text:      text,
		Timestamp: s.clock().UnixMilli(),
		ReplyTo:   replyTo,
		ReadBy:    []string{},
		Poll:      poll,
	}
	if _, err := s.store.SaveMessage(msg); err != nil {
		return model.Message{}, err
	}
	s.publish(transport.ChannelMessage, msg, transport.Reliable)
	s.notify(UpdateMessages)
	return msg, nil
}

// React toggles the local user's reaction on a message and broadcasts the
// toggle event.
func (s *Session) React(messageID, emoji string) error {
	id, err := model.NewMessageID(messageID)
	if err != nil {
		return err
	}
	if _, err := s.store.ToggleReaction(id.String(), emoji, s.self.ID); err != nil {
		return err
	}
	s.publish(transport.ChannelReaction, model.ReactionEvent{
		MessageID: id.String(),
		Emoji:     emoji,
		UserID:    s.self.ID,
	}, transport.Reliable)
	s.notify(UpdateMessages)
	return nil
}

// Vote toggles the local user's poll vote and broadcasts it.
func (s *Session) Vote(messageID, optionID string) error {
	id, err := model.NewMessageID(messageID)
	if err != nil {
		return err
	}
	if _, err := s.store.ApplyPollVote(id.String(), optionID, s.self.ID); err != nil {
		return err
	}
	s.publish(transport.ChannelPollVote, model.PollVoteEvent{
		MessageID: id.String(),
		OptionID:  optionID,
		UserID:    s.self.ID,
	}, transport.Reliable)
	s.notify(UpdateMessages)
	return nil
}

// MarkRead adds the local user to a message's read set and broadcasts a
// best-effort receipt.
func (s *Session) MarkRead(messageID string) error {
	id, err := model.NewMessageID(messageID)
	if err != nil {
		return err
	}
	if _, err := s.store.MarkMessageRead(id.String(), s.self.ID); err != nil {
		return err
	}
	s.publish(transport.ChannelRead, model.ReadReceipt{
		MessageID: id.String(),
		UserID:    s.self.ID,
	}, transport.BestEffort)
	s.notify(UpdateMessages)
	return nil
}

// UpdateProfile applies a local profile edit and broadcasts it via
// heartbeat so peers see the new name or avatar immediately.
func (s *Session) UpdateProfile(update model.ProfileUpdate) (model.User, error) {
	s.mu.Lock()
	updated := merge.ApplyProfileUpdate(s.self, update)
	s.mu.Unlock()

	if err := s.store.SaveUser(updated); err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	s.self = updated
	s.mu.Unlock()

	s.PublishHeartbeat()
	s.notify(UpdateUsers)
	return updated, nil
}

// AddEvent creates a shared calendar event and broadcasts it retained on a
// per-event topic so each event persists at the broker independently.
func (s *Session) AddEvent(title, date string, eventType model.EventType) (model.CalendarEvent, error) {
	if !eventType.Valid() {
		return model.CalendarEvent{}, fmt.Errorf("room: invalid event type %q", eventType)
	}
	rawID, err := s.ids.NewID()
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("room: event id: %w", err)
	}
	event := model.CalendarEvent{
		ID:        "evt_" + rawID,
		Title:     title,
		Date:      date,
		Type:      eventType,
		CreatedBy: s.self.Name,
		Timestamp: s.clock().UnixMilli(),
	}
	if _, err := s.store.SaveEvent(event); err != nil {
		return model.CalendarEvent{}, err
	}
	s.publish(transport.EventChannel(event.ID), event, transport.ReliableRetained)
	s.notify(UpdateEvents)
	return event, nil
}

// SetTyping broadcasts the ephemeral typing indicator. Sends are debounced
// so holding a key does not flood the room.
func (s *Session) SetTyping(isTyping bool) {
	now := s.clock()
	if isTyping {
		s.mu.Lock()
		if now.Sub(s.lastTypingSent) < typingDebounce {
			s.mu.Unlock()
			return
		}
		s.lastTypingSent = now
		s.mu.Unlock()
	}
	s.publish(transport.ChannelTyping, model.TypingEvent{
		UserID:    s.self.ID,
		UserName:  s.self.Name,
		IsTyping:  isTyping,
		Timestamp: now.UnixMilli(),
	}, transport.BestEffort)
}

// PublishHeartbeat broadcasts this device's liveness and current profile.
// The local record's own last-seen advances too, so the device never reads
// itself as offline.
func (s *Session) PublishHeartbeat() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.self.LastSeen = s.clock().UnixMilli()
	self := s.self
	s.mu.Unlock()

	if err := s.store.SaveUser(self); err != nil {
		s.logger.Warn("failed to persist own heartbeat", zap.Error(err))
	}
	s.publish(transport.ChannelHeartbeat, model.Heartbeat{
		ID:                self.ID,
		Name:              self.Name,
		Avatar:            self.Avatar,
		ClassCode:         self.ClassCode,
		TargetDaysPerWeek: self.TargetDaysPerWeek,
		LastSeen:          self.LastSeen,
		ExamName:          self.ExamName,
		ExamDate:          self.ExamDate,
		Theme:             self.Theme,
	}, transport.BestEffort)
}

// Roster returns the room's users with presence flags recomputed, self
// first, online before offline.
func (s *Session) Roster() ([]model.User, error) {
	users, err := s.store.UsersInRoom(s.self.ClassCode, s.self.ID)
	if err != nil {
		return nil, err
	}
	return s.presence.Annotate(users), nil
}

// Statuses returns every known daily status.
func (s *Session) Statuses() ([]model.DailyStatus, error) {
	return s.store.Statuses()
}

// Messages returns the retained chat history, oldest first.
func (s *Session) Messages() ([]model.Message, error) {
	return s.store.Messages()
}

// Events returns the known calendar events ordered by date.
func (s *Session) Events() ([]model.CalendarEvent, error) {
	return s.store.Events()
}

// Typing returns the currently-active typing indicators, sorted by name.
func (s *Session) Typing() []model.TypingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := make([]model.TypingStatus, 0, len(s.typing))
	for _, entry := range s.typing {
		active = append(active, entry)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].UserName < active[j].UserName })
	return active
}

// MyStats summarizes the local user's attendance against their weekly goal.
func (s *Session) MyStats() (model.AttendanceStats, error) {
	statuses, err := s.store.Statuses()
	if err != nil {
		return model.AttendanceStats{}, err
	}
	today := model.DateString(s.clock())
	return stats.Attendance(statuses, s.self.ID, today, s.self.TargetDaysPerWeek), nil
}

// Recommendation derives the go/skip verdict for today plus the given
// day offset.
func (s *Session) Recommendation(dayOffset int) (stats.Recommendation, error) {
	statuses, err := s.store.Statuses()
	if err != nil {
		return stats.Recommendation{}, err
	}
	view := model.DateWithOffset(s.clock(), dayOffset)
	myStats, err := s.MyStats()
	if err != nil {
		return stats.Recommendation{}, err
	}
	return stats.Recommend(statuses, s.self.ID, view.DateStr, view.Label, myStats.TargetPercentage), nil
}

// User returns the session identity as currently stored.
func (s *Session) User() model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.self
}

func (s *Session) publish(channel string, payload any, class transport.DeliveryClass) {
	if err := s.transport.Publish(channel, payload, class); err != nil {
		s.logger.Debug("publish skipped", zap.String("channel", channel), zap.Error(err))
	}
}

func (s *Session) notify(kind UpdateKind) {
	if s.onUpdate != nil {
		s.onUpdate(kind)
	}
}

func (s *Session) sweepTyping() {
	cutoff := s.clock().UnixMilli() - typingTTL.Milliseconds()
	s.mu.Lock()
	removed := false
	for userID, entry := range s.typing {
		if entry.Timestamp < cutoff {
			delete(s.typing, userID)
			removed = true
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify(UpdateTyping)
	}
}
