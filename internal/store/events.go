package store

import (
	"sort"

	"github.com/bunkmate-app/bunkmate/backend/internal/model"
	"go.uber.org/zap"
)

// Events returns a copy of the known calendar events ordered by date.
func (s *Store) Events() ([]model.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureEventsLocked(); err != nil {
		return nil, err
	}
	events := make([]model.CalendarEvent, len(s.events))
	copy(events, s.events)
	return events, nil
}

// SaveEvent stores a calendar event. Events are append-only and
// deduplicated by id; a replayed retained event reports false.
func (s *Store) SaveEvent(event model.CalendarEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureEventsLocked(); err != nil {
		return false, err
	}

	for _, known := range s.events {
		if known.ID == event.ID {
			return false, nil
		}
	}

	record := eventToRecord(event)
	if err := s.db.Create(&record).Error; err != nil {
		s.logError(opSaveEvent, "write_failed", err, zap.String("event_id", event.ID))
		return false, newStoreError(opSaveEvent, "write_failed", err)
	}

	s.events = append(s.events, event)
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].Date < s.events[j].Date })
	return true, nil
}

func (s *Store) ensureEventsLocked() error {
	if s.eventsLoaded {
		return nil
	}
	var records []EventRecord
	if err := s.db.Order("date ASC").Find(&records).Error; err != nil {
		s.logError(opLoadEvents, "query_failed", err)
		return newStoreError(opLoadEvents, "query_failed", err)
	}
	events := make([]model.CalendarEvent, 0, len(records))
	for _, record := range records {
		events = append(events, recordToEvent(record))
	}
	s.events = events
	s.eventsLoaded = true
	return nil
}
