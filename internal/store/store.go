// Package store implements the durable per-device state repository: a
// SQLite-backed record of the four shared collections (users, daily
// statuses, messages, calendar events) fronted by in-memory caches. The
// cache and the durable layer are always updated together; a failed write
// leaves the cache untouched and surfaces the error to the caller.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bunkmate-app/bunkmate/backend/internal/merge"
	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// StoreError wraps a failed repository operation with a stable code.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

// Code returns the stable operation code for the failure.
func (e *StoreError) Code() string {
	return e.code
}

const (
	opStoreNew     = "store.new"
	opLoadUsers    = "store.users.load"
	opSaveUser     = "store.users.save"
	opLoadStatuses = "store.statuses.load"
	opSaveStatus   = "store.statuses.save"
	opLoadMessages = "store.messages.load"
	opSaveMessage  = "store.messages.save"
	opLoadEvents   = "store.events.load"
	opSaveEvent    = "store.events.save"
)

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// Config describes the dependencies required by the repository.
type Config struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Store is the per-device local store. All mutations serialize behind one
// mutex, which is the single-writer policy the merge rules assume.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu              sync.Mutex
	users           []model.User
	usersLoaded     bool
	statuses        []model.DailyStatus
	statusesLoaded  bool
	messages        []model.Message
	messagesLoaded  bool
	events          []model.CalendarEvent
	eventsLoaded    bool
}

// New constructs the repository. Collections load lazily on first read.
func New(cfg Config) (*Store, error) {
	if cfg.Database == nil {
		return nil, newStoreError(opStoreNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Store{db: cfg.Database, logger: logger}, nil
}

// Warm eagerly loads every collection so malformed persisted data fails at
// startup instead of surfacing mid-session.
func (s *Store) Warm() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return err
	}
	if err := s.ensureStatusesLocked(); err != nil {
		return err
	}
	if err := s.ensureMessagesLocked(); err != nil {
		return err
	}
	return s.ensureEventsLocked()
}

// Reset drops every in-memory cache. Called on logout so the next session
// starts cold; durable rows are untouched.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = nil
	s.usersLoaded = false
	s.statuses = nil
	s.statusesLoaded = false
	s.messages = nil
	s.messagesLoaded = false
	s.events = nil
	s.eventsLoaded = false
}

// UsersInRoom returns the known users sharing the given class code, with the
// IsSelf flag set for the supplied device identity. The result is a copy.
func (s *Store) UsersInRoom(classCode, selfUserID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return nil, err
	}
	roster := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		if user.ClassCode != classCode {
			continue
		}
		user.IsSelf = user.ID == selfUserID
		roster = append(roster, user)
	}
	return roster, nil
}

// UserByID returns the stored record for one user id.
func (s *Store) UserByID(userID string) (model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return model.User{}, false, err
	}
	for _, user := range s.users {
		if user.ID == userID {
			return user, true, nil
		}
	}
	return model.User{}, false, nil
}

// UserByName returns the locally-registered record matching a display name
// within a room. Comparison is case-insensitive. Records learned from remote
// heartbeats are skipped so a restart can never adopt a peer's identity.
func (s *Store) UserByName(name, classCode string) (model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return model.User{}, false, err
	}
	for _, user := range s.users {
		if user.IsSelf && user.ClassCode == classCode && strings.EqualFold(user.Name, name) {
			return user, true, nil
		}
	}
	return model.User{}, false, nil
}

// NameExists reports whether a user with the given display name is already
// registered in the room. Comparison is case-insensitive.
func (s *Store) NameExists(name, classCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return false, err
	}
	for _, user := range s.users {
		if user.ClassCode == classCode && strings.EqualFold(user.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// SaveUser persists a locally-originated user record (registration or a
// profile edit) and updates the cache in the same step.
func (s *Store) SaveUser(user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return err
	}
	record := userToRecord(user)
	if err := s.db.Save(&record).Error; err != nil {
		s.logError(opSaveUser, "write_failed", err, zap.String("user_id", user.ID))
		return newStoreError(opSaveUser, "write_failed", err)
	}
	s.putUserLocked(user)
	return nil
}

// UpsertRemoteUser merges an incoming heartbeat into the known-user set and
// returns the merged record.
func (s *Store) UpsertRemoteUser(beat model.Heartbeat) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureUsersLocked(); err != nil {
		return model.User{}, err
	}

	var existing *model.User
	for i := range s.users {
		if s.users[i].ID == beat.ID {
			existing = &s.users[i]
			break
		}
	}

	mergedUser := merge.MergeHeartbeat(existing, beat)
	record := userToRecord(mergedUser)
	if err := s.db.Save(&record).Error; err != nil {
		s.logError(opSaveUser, "write_failed", err, zap.String("user_id", beat.ID))
		return model.User{}, newStoreError(opSaveUser, "write_failed", err)
	}
	s.putUserLocked(mergedUser)
	return mergedUser, nil
}

// Statuses returns a copy of every known daily status.
func (s *Store) Statuses() ([]model.DailyStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureStatusesLocked(); err != nil {
		return nil, err
	}
	statuses := make([]model.DailyStatus, len(s.statuses))
	copy(statuses, s.statuses)
	return statuses, nil
}

// SaveStatus persists a locally-originated status, replacing any prior
// record for the same (user, date) key regardless of timestamps: the local
// user's latest tap is always authoritative on their own device.
func (s *Store) SaveStatus(status model.DailyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureStatusesLocked(); err != nil {
		return err
	}
	record := statusToRecord(status)
	if err := s.db.Save(&record).Error; err != nil {
		s.logError(opSaveStatus, "write_failed", err,
			zap.String("user_id", status.UserID), zap.String("date", status.Date))
		return newStoreError(opSaveStatus, "write_failed", err)
	}
	s.putStatusLocked(status)
	return nil
}

// SaveRemoteStatus merges a remote status via last-write-wins. It reports
// whether the remote record was accepted.
func (s *Store) SaveRemoteStatus(status model.DailyStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureStatusesLocked(); err != nil {
		return false, err
	}

	var existing *model.DailyStatus
	for i := range s.statuses {
		if s.statuses[i].UserID == status.UserID && s.statuses[i].Date == status.Date {
			existing = &s.statuses[i]
			break
		}
	}

	outcome := merge.ResolveStatus(existing, status)
	if !outcome.Accepted {
		return false, nil
	}
	record := statusToRecord(outcome.Updated)
	if err := s.db.Save(&record).Error; err != nil {
		s.logError(opSaveStatus, "write_failed", err,
			zap.String("user_id", status.UserID), zap.String("date", status.Date))
		return false, newStoreError(opSaveStatus, "write_failed", err)
	}
	s.putStatusLocked(outcome.Updated)
	return true, nil
}

func (s *Store) ensureUsersLocked() error {
	if s.usersLoaded {
		return nil
	}
	var records []UserRecord
	if err := s.db.Find(&records).Error; err != nil {
		s.logError(opLoadUsers, "query_failed", err)
		return newStoreError(opLoadUsers, "query_failed", err)
	}
	users := make([]model.User, 0, len(records))
	for _, record := range records {
		users = append(users, recordToUser(record))
	}
	s.users = users
	s.usersLoaded = true
	return nil
}

func (s *Store) ensureStatusesLocked() error {
	if s.statusesLoaded {
		return nil
	}
	var records []StatusRecord
	if err := s.db.Find(&records).Error; err != nil {
		s.logError(opLoadStatuses, "query_failed", err)
		return newStoreError(opLoadStatuses, "query_failed", err)
	}
	statuses := make([]model.DailyStatus, 0, len(records))
	for _, record := range records {
		statuses = append(statuses, recordToStatus(record))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Date < statuses[j].Date })
	s.statuses = statuses
	s.statusesLoaded = true
	return nil
}

func (s *Store) putUserLocked(user model.User) {
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = user
			return
		}
	}
	s.users = append(s.users, user)
}

func (s *Store) putStatusLocked(status model.DailyStatus) {
	for i := range s.statuses {
		if s.statuses[i].UserID == status.UserID && s.statuses[i].Date == status.Date {
			s.statuses[i] = status
			return
		}
	}
	s.statuses = append(s.statuses, status)
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("store error", attrs...)
}
