package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"github.com/bunkmate-app/bunkmate/backend/internal/store"
	"github.com/bunkmate-app/bunkmate/backend/internal/transport"
)

type publishedEvent struct {
	channel string
	payload any
	class   transport.DeliveryClass
}

type fakeTransport struct {
	mu        sync.Mutex
	published []publishedEvent
	onMessage transport.MessageHandler
	connected bool
	wakes     int
}

func (f *fakeTransport) Connect(classCode string, onMessage transport.MessageHandler, onConnect func()) error {
	f.mu.Lock()
	f.onMessage = onMessage
	f.connected = true
	f.mu.Unlock()
	if onConnect != nil {
		onConnect()
	}
	return nil
}

func (f *fakeTransport) Publish(channel string, payload any, class transport.DeliveryClass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedEvent{channel: channel, payload: payload, class: class})
	return nil
}

func (f *fakeTransport) Wake() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakes++
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeTransport) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func (f *fakeTransport) publishedOn(channel string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []publishedEvent
	for _, event := range f.published {
		if event.channel == channel {
			matched = append(matched, event)
		}
	}
	return matched
}

// deliver simulates a broker echo of the given payload on a channel.
func (f *fakeTransport) deliver(t *testing.T, channel string, payload any) {
	t.Helper()
	f.mu.Lock()
	handler := f.onMessage
	f.mu.Unlock()
	if handler == nil {
		t.Fatalf("transport is not connected")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	handler(channel, encoded)
}

type staticIDGenerator struct {
	mu  sync.Mutex
	ids []string
}

func (g *staticIDGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) == 0 {
		return "", fmt.Errorf("id generator exhausted")
	}
	next := g.ids[0]
	g.ids = g.ids[1:]
	return next, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) time() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type updateRecorder struct {
	mu    sync.Mutex
	kinds []UpdateKind
}

func (r *updateRecorder) record(kind UpdateKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *updateRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.kinds)
}

func (r *updateRecorder) count(kind UpdateKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, recorded := range r.kinds {
		if recorded == kind {
			total++
		}
	}
	return total
}

func newTestRepo(t *testing.T) *store.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:room_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&store.UserRecord{}, &store.StatusRecord{}, &store.MessageRecord{}, &store.EventRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo, err := store.New(store.Config{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return repo
}

func newTestSession(t *testing.T, ids []string) (*Session, *fakeTransport, *fakeClock, *updateRecorder) {
	t.Helper()

	repo := newTestRepo(t)
	broker := &fakeTransport{}
	clock := &fakeClock{now: time.UnixMilli(1_000_000)}
	updates := &updateRecorder{}

	session, err := NewSession(Config{
		Store:     repo,
		Transport: broker,
		User: model.User{
			ID:                "u_self",
			Name:              "Me",
			ClassCode:         "CS101",
			TargetDaysPerWeek: 4,
		},
		Logger:   zap.NewNop(),
		Clock:    clock.time,
		IDs:      &staticIDGenerator{ids: ids},
		OnUpdate: updates.record,
	})
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	return session, broker, clock, updates
}

func startTestSession(t *testing.T, session *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(session.Close)
	if err := session.Start(ctx); err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
}

func TestStartPublishesImmediateHeartbeat(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)

	beats := broker.publishedOn(transport.ChannelHeartbeat)
	if len(beats) != 1 {
		t.Fatalf("expected one heartbeat on connect, got %d", len(beats))
	}
	beat, ok := beats[0].payload.(model.Heartbeat)
	if !ok {
		t.Fatalf("expected a heartbeat payload, got %T", beats[0].payload)
	}
	if beat.ID != "u_self" || beat.ClassCode != "CS101" {
		t.Fatalf("heartbeat must carry the session identity, got %#v", beat)
	}
	if beats[0].class.Retained || beats[0].class.QoS != 0 {
		t.Fatalf("heartbeats are best-effort and never retained, got %#v", beats[0].class)
	}
}

func TestSaveStatusPublishesRetained(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)

	saved, err := session.SaveStatus(model.StatusGoing, "2026-08-28", "quiz day")
	if err != nil {
		t.Fatalf("failed to save status: %v", err)
	}
	if saved.UserID != "u_self" || saved.Timestamp == 0 {
		t.Fatalf("status must carry identity and timestamp, got %#v", saved)
	}

	published := broker.publishedOn(transport.ChannelStatus)
	if len(published) != 1 {
		t.Fatalf("expected one status publish, got %d", len(published))
	}
	if !published[0].class.Retained || published[0].class.QoS != 1 {
		t.Fatalf("status must go out retained at QoS 1, got %#v", published[0].class)
	}

	statuses, err := session.Statuses()
	if err != nil {
		t.Fatalf("failed to read statuses: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Note != "quiz day" {
		t.Fatalf("status must be stored locally, got %#v", statuses)
	}
}

func TestSaveStatusRejectsUnknownType(t *testing.T) {
	session, _, _, _ := newTestSession(t, nil)
	if _, err := session.SaveStatus(model.StatusType("MAYBE"), "2026-08-28", ""); err == nil {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestSendMessageStoresAndPublishes(t *testing.T) {
	session, broker, _, _ := newTestSession(t, []string{"0001"})
	startTestSession(t, session)

	msg, err := session.SendMessage("hello room", nil, nil)
	if err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	if msg.ID != "msg_0001" {
		t.Fatalf("expected generated id msg_0001, got %s", msg.ID)
	}
	if msg.ReadBy == nil {
		t.Fatalf("a fresh message carries an empty read set, not nil")
	}

	published := broker.publishedOn(transport.ChannelMessage)
	if len(published) != 1 {
		t.Fatalf("expected one message publish, got %d", len(published))
	}
	if published[0].class.QoS != 1 || published[0].class.Retained {
		t.Fatalf("messages are reliable but not retained, got %#v", published[0].class)
	}
}

func TestMutationChannels(t *testing.T) {
	session, broker, _, _ := newTestSession(t, []string{"0001"})
	startTestSession(t, session)

	if _, err := session.SendMessage("hello", nil, nil); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	if err := session.React("msg_0001", "❤️"); err != nil {
		t.Fatalf("failed to react: %v", err)
	}
	if err := session.MarkRead("msg_0001"); err != nil {
		t.Fatalf("failed to mark read: %v", err)
	}

	if got := broker.publishedOn(transport.ChannelReaction); len(got) != 1 {
		t.Fatalf("expected one reaction publish, got %d", len(got))
	}
	reads := broker.publishedOn(transport.ChannelRead)
	if len(reads) != 1 {
		t.Fatalf("expected one read receipt publish, got %d", len(reads))
	}
	if reads[0].class.QoS != 0 {
		t.Fatalf("read receipts are best-effort, got %#v", reads[0].class)
	}
}

func TestAddEventPublishesPerEventRetainedTopic(t *testing.T) {
	session, broker, _, _ := newTestSession(t, []string{"0002"})
	startTestSession(t, session)

	event, err := session.AddEvent("Midsem", "2026-09-15", model.EventImportant)
	if err != nil {
		t.Fatalf("failed to add event: %v", err)
	}
	if event.ID != "evt_0002" || event.CreatedBy != "Me" {
		t.Fatalf("unexpected event %#v", event)
	}

	published := broker.publishedOn("event/evt_0002")
	if len(published) != 1 {
		t.Fatalf("each event must publish on its own suffix, got %#v", broker.published)
	}
	if !published[0].class.Retained {
		t.Fatalf("calendar events must be retained at the broker")
	}
}

func TestAddEventRejectsUnknownType(t *testing.T) {
	session, _, _, _ := newTestSession(t, []string{"0002"})
	if _, err := session.AddEvent("Midsem", "2026-09-15", model.EventType("EXAM")); err == nil {
		t.Fatalf("expected invalid event type to be rejected")
	}
}

func TestUpdateProfileBroadcastsHeartbeat(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)

	newName := "Me Renamed"
	updated, err := session.UpdateProfile(model.ProfileUpdate{Name: &newName})
	if err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}
	if updated.Name != "Me Renamed" {
		t.Fatalf("expected renamed profile, got %#v", updated)
	}
	if session.User().Name != "Me Renamed" {
		t.Fatalf("session identity must reflect the edit")
	}

	beats := broker.publishedOn(transport.ChannelHeartbeat)
	if len(beats) != 2 {
		t.Fatalf("expected connect beat plus profile beat, got %d", len(beats))
	}
	beat := beats[1].payload.(model.Heartbeat)
	if beat.Name != "Me Renamed" {
		t.Fatalf("profile beat must carry the new name, got %#v", beat)
	}
}

func TestSetTypingDebounces(t *testing.T) {
	session, broker, clock, _ := newTestSession(t, nil)
	startTestSession(t, session)

	session.SetTyping(true)
	session.SetTyping(true)
	if got := broker.publishedOn(transport.ChannelTyping); len(got) != 1 {
		t.Fatalf("rapid typing must debounce to one publish, got %d", len(got))
	}

	clock.advance(3 * time.Second)
	session.SetTyping(true)
	if got := broker.publishedOn(transport.ChannelTyping); len(got) != 2 {
		t.Fatalf("typing after the debounce window must publish, got %d", len(got))
	}

	session.SetTyping(false)
	if got := broker.publishedOn(transport.ChannelTyping); len(got) != 3 {
		t.Fatalf("stop-typing must always publish, got %d", len(got))
	}
}

func TestCloseStopsHeartbeats(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)

	session.Close()
	before := len(broker.publishedOn(transport.ChannelHeartbeat))
	session.PublishHeartbeat()
	after := len(broker.publishedOn(transport.ChannelHeartbeat))
	if before != after {
		t.Fatalf("no publish may happen after Close")
	}
	if broker.IsConnected() {
		t.Fatalf("transport must be disconnected on Close")
	}
}

func TestWakeForcesReconnectAndHeartbeat(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)

	session.Wake()
	broker.mu.Lock()
	wakes := broker.wakes
	broker.mu.Unlock()
	if wakes != 1 {
		t.Fatalf("expected one transport wake, got %d", wakes)
	}
	if got := broker.publishedOn(transport.ChannelHeartbeat); len(got) != 2 {
		t.Fatalf("wake must publish a fresh heartbeat, got %d", len(got))
	}
}

func TestDispatchMergesRemoteHeartbeat(t *testing.T) {
	session, broker, clock, updates := newTestSession(t, nil)
	startTestSession(t, session)

	broker.deliver(t, transport.ChannelHeartbeat, model.Heartbeat{
		ID:        "u_peer",
		Name:      "Priya",
		ClassCode: "CS101",
		LastSeen:  clock.time().UnixMilli(),
	})

	roster, err := session.Roster()
	if err != nil {
		t.Fatalf("failed to read roster: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected self plus peer, got %d entries", len(roster))
	}
	if roster[0].ID != "u_self" || !roster[0].IsSelf {
		t.Fatalf("self must sort first, got %#v", roster[0])
	}
	if !roster[1].Online {
		t.Fatalf("a fresh peer heartbeat must read as online")
	}
	if updates.count(UpdateUsers) == 0 {
		t.Fatalf("a merged heartbeat must notify the users collection")
	}
}

func TestDispatchIgnoresOwnEcho(t *testing.T) {
	session, broker, _, updates := newTestSession(t, []string{"0001"})
	startTestSession(t, session)

	if _, err := session.SendMessage("hello", nil, nil); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	beforeMessages := updates.count(UpdateMessages)

	// The broker echoes our own publish back on the wildcard subscription.
	broker.deliver(t, transport.ChannelMessage, model.Message{
		ID:     "msg_0001",
		UserID: "u_self",
		Text:   "hello",
	})
	broker.deliver(t, transport.ChannelStatus, model.DailyStatus{
		UserID: "u_self", Date: "2026-08-28", Status: model.StatusGoing, Timestamp: 99,
	})

	if updates.count(UpdateMessages) != beforeMessages {
		t.Fatalf("own echoes must not trigger message updates")
	}
	statuses, err := session.Statuses()
	if err != nil {
		t.Fatalf("failed to read statuses: %v", err)
	}
	if len(statuses) != 0 {
		t.Fatalf("own status echo must not write the store, got %#v", statuses)
	}
}

func TestDispatchDropsMalformedPayloads(t *testing.T) {
	session, broker, _, updates := newTestSession(t, nil)
	startTestSession(t, session)
	before := updates.total()

	broker.mu.Lock()
	handler := broker.onMessage
	broker.mu.Unlock()
	for _, channel := range []string{
		transport.ChannelHeartbeat,
		transport.ChannelStatus,
		transport.ChannelMessage,
		transport.ChannelReaction,
		transport.ChannelRead,
		transport.ChannelPollVote,
		transport.ChannelTyping,
		"event/evt_x",
	} {
		handler(channel, []byte("{not json"))
		handler(channel, []byte("{}"))
	}

	if updates.total() != before {
		t.Fatalf("malformed payloads must be dropped silently")
	}
}

func TestDispatchIgnoresUnknownChannel(t *testing.T) {
	session, broker, _, updates := newTestSession(t, nil)
	startTestSession(t, session)
	before := updates.total()

	broker.deliver(t, "future-feature", map[string]string{"hello": "world"})

	if updates.total() != before {
		t.Fatalf("unknown channels must be ignored")
	}
}

func TestDispatchAppliesRemoteStatusLWW(t *testing.T) {
	session, broker, _, updates := newTestSession(t, nil)
	startTestSession(t, session)

	broker.deliver(t, transport.ChannelStatus, model.DailyStatus{
		UserID: "u_peer", Date: "2026-08-28", Status: model.StatusGoing, Timestamp: 100,
	})
	if updates.count(UpdateStatuses) != 1 {
		t.Fatalf("accepted remote status must notify")
	}

	broker.deliver(t, transport.ChannelStatus, model.DailyStatus{
		UserID: "u_peer", Date: "2026-08-28", Status: model.StatusNotGoing, Timestamp: 50,
	})
	if updates.count(UpdateStatuses) != 1 {
		t.Fatalf("a rejected stale status must not notify")
	}

	statuses, err := session.Statuses()
	if err != nil {
		t.Fatalf("failed to read statuses: %v", err)
	}
	if len(statuses) != 1 || statuses[0].Status != model.StatusGoing {
		t.Fatalf("the newer remote status must survive, got %#v", statuses)
	}
}

func TestDispatchDropsStatusWithoutTimestamp(t *testing.T) {
	session, broker, _, updates := newTestSession(t, nil)
	startTestSession(t, session)
	before := updates.count(UpdateStatuses)

	broker.deliver(t, transport.ChannelStatus, model.DailyStatus{
		UserID: "u_peer", Date: "2026-08-28", Status: model.StatusGoing,
	})

	if updates.count(UpdateStatuses) != before {
		t.Fatalf("a status without a timestamp must be dropped")
	}
	statuses, err := session.Statuses()
	if err != nil {
		t.Fatalf("failed to read statuses: %v", err)
	}
	if len(statuses) != 0 {
		t.Fatalf("expected no stored status, got %#v", statuses)
	}
}

func TestMutationsRejectBlankMessageID(t *testing.T) {
	session, broker, _, _ := newTestSession(t, nil)
	startTestSession(t, session)
	before := broker.total()

	if err := session.React("  ", "👍"); !errors.Is(err, model.ErrInvalidMessageID) {
		t.Fatalf("expected invalid message id for reaction, got %v", err)
	}
	if err := session.Vote("", "opt_1"); !errors.Is(err, model.ErrInvalidMessageID) {
		t.Fatalf("expected invalid message id for vote, got %v", err)
	}
	if err := session.MarkRead(""); !errors.Is(err, model.ErrInvalidMessageID) {
		t.Fatalf("expected invalid message id for read receipt, got %v", err)
	}

	if broker.total() != before {
		t.Fatalf("rejected mutations must not publish")
	}
}

func TestDispatchRemoteReactionAndVote(t *testing.T) {
	session, broker, _, _ := newTestSession(t, []string{"0001"})
	startTestSession(t, session)

	poll := &model.Poll{
		Question: "go tomorrow?",
		Options: []model.PollOption{
			{ID: "o1", Text: "yes", Votes: []string{}},
			{ID: "o2", Text: "no", Votes: []string{}},
		},
	}
	if _, err := session.SendMessage("poll time", nil, poll); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}

	broker.deliver(t, transport.ChannelReaction, model.ReactionEvent{
		MessageID: "msg_0001", Emoji: "🔥", UserID: "u_peer",
	})
	broker.deliver(t, transport.ChannelPollVote, model.PollVoteEvent{
		MessageID: "msg_0001", OptionID: "o2", UserID: "u_peer",
	})
	broker.deliver(t, transport.ChannelRead, model.ReadReceipt{
		MessageID: "msg_0001", UserID: "u_peer",
	})

	messages, err := session.Messages()
	if err != nil {
		t.Fatalf("failed to read messages: %v", err)
	}
	msg := messages[0]
	if len(msg.Reactions["🔥"]) != 1 || msg.Reactions["🔥"][0] != "u_peer" {
		t.Fatalf("remote reaction lost, got %#v", msg.Reactions)
	}
	if len(msg.Poll.Options[1].Votes) != 1 || msg.Poll.Options[1].Votes[0] != "u_peer" {
		t.Fatalf("remote vote lost, got %#v", msg.Poll)
	}
	if len(msg.ReadBy) != 1 || msg.ReadBy[0] != "u_peer" {
		t.Fatalf("remote read receipt lost, got %#v", msg.ReadBy)
	}
}

func TestDispatchRetainedEventReplayDeduplicates(t *testing.T) {
	session, broker, _, updates := newTestSession(t, nil)
	startTestSession(t, session)

	event := model.CalendarEvent{
		ID: "evt_9", Title: "Holiday", Date: "2026-09-01",
		Type: model.EventFun, CreatedBy: "Priya", Timestamp: 1,
	}
	broker.deliver(t, "event/evt_9", event)
	broker.deliver(t, "event/evt_9", event)

	events, err := session.Events()
	if err != nil {
		t.Fatalf("failed to read events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("replayed retained event must deduplicate, got %d", len(events))
	}
	if updates.count(UpdateEvents) != 1 {
		t.Fatalf("only the first arrival notifies, got %d", updates.count(UpdateEvents))
	}
}

func TestTypingIndicatorLifecycle(t *testing.T) {
	session, broker, clock, updates := newTestSession(t, nil)
	startTestSession(t, session)

	broker.deliver(t, transport.ChannelTyping, model.TypingEvent{
		UserID: "u_peer", UserName: "Priya", IsTyping: true, Timestamp: clock.time().UnixMilli(),
	})

	active := session.Typing()
	if len(active) != 1 || active[0].UserName != "Priya" {
		t.Fatalf("expected one active typist, got %#v", active)
	}

	clock.advance(4 * time.Second)
	session.sweepTyping()

	if remaining := session.Typing(); len(remaining) != 0 {
		t.Fatalf("typing indicators must expire after the TTL, got %#v", remaining)
	}
	if updates.count(UpdateTyping) != 2 {
		t.Fatalf("arrival and expiry must both notify, got %d", updates.count(UpdateTyping))
	}
}

func TestLogoutClearsCaches(t *testing.T) {
	session, _, _, _ := newTestSession(t, []string{"0001"})
	startTestSession(t, session)

	if _, err := session.SendMessage("hello", nil, nil); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	session.Logout()

	if err := session.Start(context.Background()); err == nil {
		t.Fatalf("a closed session must refuse to restart")
	} else if !strings.Contains(err.Error(), "closed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegistryRegisterAndResume(t *testing.T) {
	repo := newTestRepo(t)
	clock := &fakeClock{now: time.UnixMilli(1_000_000)}
	registry, err := NewRegistry(repo, &staticIDGenerator{ids: []string{"0001", "0002"}}, clock.time)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	user, err := registry.Register("Priya", "cs101", 5)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	if user.ID != "u_0001" {
		t.Fatalf("expected generated id u_0001, got %s", user.ID)
	}
	if user.ClassCode != "CS101" {
		t.Fatalf("class codes normalize to upper case, got %s", user.ClassCode)
	}
	if user.Avatar == "" {
		t.Fatalf("registration must assign an avatar")
	}

	if _, err := registry.Register("pRiYa", "CS101", 4); err == nil {
		t.Fatalf("duplicate names in a room must be rejected")
	}

	resumed, err := registry.EnsureIdentity("Priya", "CS101", 4)
	if err != nil {
		t.Fatalf("failed to resume identity: %v", err)
	}
	if resumed.ID != "u_0001" {
		t.Fatalf("the same name must resolve to the same identity, got %s", resumed.ID)
	}

	fresh, err := registry.EnsureIdentity("Arjun", "CS101", 9)
	if err != nil {
		t.Fatalf("failed to register fresh identity: %v", err)
	}
	if fresh.ID != "u_0002" {
		t.Fatalf("a new name registers a new identity, got %s", fresh.ID)
	}
	if fresh.TargetDaysPerWeek != 4 {
		t.Fatalf("an out-of-range target clamps to the default, got %d", fresh.TargetDaysPerWeek)
	}
}

func TestEnsureIdentityNeverAdoptsPeerRecord(t *testing.T) {
	repo := newTestRepo(t)
	registry, err := NewRegistry(repo, &staticIDGenerator{ids: []string{"0001"}}, nil)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}

	if _, err := repo.UpsertRemoteUser(model.Heartbeat{ID: "u_peer", Name: "Priya", ClassCode: "CS101"}); err != nil {
		t.Fatalf("failed to record peer heartbeat: %v", err)
	}

	if _, err := registry.EnsureIdentity("Priya", "CS101", 4); !errors.Is(err, ErrNameTaken) {
		t.Fatalf("a name held by a peer must fail instead of reusing their id, got %v", err)
	}
}

func TestRegistryLogin(t *testing.T) {
	repo := newTestRepo(t)
	registry, err := NewRegistry(repo, &staticIDGenerator{ids: []string{"0001"}}, nil)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	user, err := registry.Register("Priya", "CS101", 4)
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}

	resumed, err := registry.Login(user.ID)
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	if !resumed.IsSelf {
		t.Fatalf("a resumed identity is self")
	}

	if _, err := registry.Login("u_nope"); err == nil {
		t.Fatalf("unknown ids must fail login")
	}
}
