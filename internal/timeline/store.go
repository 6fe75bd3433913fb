package timeline

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"
)

const seedProfileName = "Default Patient"

// Store is the single source of truth for profiles, events and the
// secondary collections. One mutex guards everything: every operation runs
// to completion inside it, and every mutating operation writes a full
// snapshot before returning. The store never calls outward except to its
// persister.
type Store struct {
	mu sync.Mutex

	profiles    map[string]*PatientProfile
	events      map[string][]Event
	followups   map[string][]*FollowupTask
	annotations map[string][]*Annotation
	savedViews  map[string][]*SavedView
	sessions    []*AgentSession

	activeProfileID string

	persister Persister
}

// NewStore loads the snapshot behind the persister, or seeds a single
// synthesized profile when none exists yet. A nil persister gives a purely
// in-memory store.
func NewStore(persister Persister) (*Store, error) {
	s := &Store{
		profiles:    make(map[string]*PatientProfile),
		events:      make(map[string][]Event),
		followups:   make(map[string][]*FollowupTask),
		annotations: make(map[string][]*Annotation),
		savedViews:  make(map[string][]*SavedView),
		persister:   persister,
	}

	if persister != nil {
		snap, err := persister.Load()
		if err != nil {
			return nil, err
		}
		if snap != nil {
			s.restore(snap)
		}
	}

	if len(s.profiles) == 0 {
		s.seedLocked()
		s.persistLocked()
	}
	return s, nil
}

func (s *Store) restore(snap *Snapshot) {
	for id, p := range snap.Profiles {
		s.profiles[id] = p
	}
	for pid, raws := range snap.Events {
		events := make([]Event, 0, len(raws))
		for _, raw := range raws {
			ev, err := DecodeEvent(raw)
			if err != nil {
				log.Printf("timeline: skipping undecodable event for patient %s: %v", pid, err)
				continue
			}
			events = append(events, ev)
		}
		s.events[pid] = events
	}
	for pid, anns := range snap.Annotations {
		s.annotations[pid] = anns
	}
	for pid, views := range snap.SavedViews {
		s.savedViews[pid] = views
	}
	s.sessions = snap.Sessions
	if _, ok := s.profiles[snap.ActiveProfileID]; ok {
		s.activeProfileID = snap.ActiveProfileID
		return
	}
	// Stale or missing active pointer: fall back to any loaded profile.
	for id := range s.profiles {
		s.activeProfileID = id
		break
	}
}

// seedLocked installs a fresh synthesized profile and makes it active.
func (s *Store) seedLocked() *PatientProfile {
	profile := newSeedProfile(seedProfileName)
	s.profiles[profile.ID] = profile
	s.events[profile.ID] = []Event{}
	s.activeProfileID = profile.ID
	return profile
}

// persistLocked writes the full snapshot. An I/O failure is logged and the
// already-applied in-memory mutation stands; there is no rollback.
func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	snap := &Snapshot{
		Profiles:        s.profiles,
		Sessions:        s.sessions,
		Events:          make(map[string][]json.RawMessage, len(s.events)),
		Annotations:     s.annotations,
		SavedViews:      s.savedViews,
		ActiveProfileID: s.activeProfileID,
	}
	for pid, events := range s.events {
		raws := make([]json.RawMessage, 0, len(events))
		for _, ev := range events {
			raw, err := json.Marshal(ev)
			if err != nil {
				log.Printf("timeline: cannot marshal event %s: %v", ev.Env().ID, err)
				continue
			}
			raws = append(raws, raw)
		}
		snap.Events[pid] = raws
	}
	if err := s.persister.Save(snap); err != nil {
		log.Printf("timeline: snapshot write failed: %v", err)
	}
}

// SaveProfile upserts by id and initializes the patient's event list when it
// does not exist yet. The profile is stored as given; no fields are derived.
func (s *Store) SaveProfile(profile *PatientProfile) *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile
	if _, ok := s.events[profile.ID]; !ok {
		s.events[profile.ID] = []Event{}
	}
	s.persistLocked()
	return profile
}

// GetProfile returns nil when the id is unknown.
func (s *Store) GetProfile(id string) *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id]
}

// GetActiveProfile returns the currently selected profile, or nil.
func (s *Store) GetActiveProfile() *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[s.activeProfileID]
}

// ListProfiles returns all known profiles in no guaranteed order.
func (s *Store) ListProfiles() []*PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Values(s.profiles)
}

// SwitchProfile re-points the active profile. Returns nil when the id is
// unknown, leaving the active pointer untouched.
func (s *Store) SwitchProfile(id string) *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[id]
	if !ok {
		return nil
	}
	s.activeProfileID = id
	s.persistLocked()
	return profile
}

// CreateNewProfile synthesizes a complete profile under a fresh id with an
// empty event list.
func (s *Store) CreateNewProfile(name string) *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile := newSeedProfile(name)
	s.profiles[profile.ID] = profile
	s.events[profile.ID] = []Event{}
	if s.activeProfileID == "" {
		s.activeProfileID = profile.ID
	}
	s.persistLocked()
	return profile
}

// CreateProfileWithEvents atomically installs a profile together with a
// pre-built event list (already validated upstream) and makes it active.
func (s *Store) CreateProfileWithEvents(profile *PatientProfile, events []Event) *PatientProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[profile.ID] = profile
	s.events[profile.ID] = append([]Event{}, events...)
	s.activeProfileID = profile.ID
	s.persistLocked()
	return profile
}

// DeleteProfile removes a profile and its events. When the active profile is
// removed, an arbitrary remaining profile becomes active; when none remain,
// a fresh profile is seeded. The store never holds zero profiles.
func (s *Store) DeleteProfile(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return false
	}
	delete(s.profiles, id)
	delete(s.events, id)

	if s.activeProfileID == id {
		s.activeProfileID = ""
		for remaining := range s.profiles {
			s.activeProfileID = remaining
			break
		}
	}
	if len(s.profiles) == 0 {
		s.seedLocked()
	}
	s.persistLocked()
	return true
}

// AddEvent dispatches on the event_type discriminator, validates the
// variant, appends to the patient's list (created on demand) and persists.
// The caller supplies id and timestamp.
func (s *Store) AddEvent(raw []byte) (Event, error) {
	event, err := DecodeEvent(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	patientID := event.Env().PatientID
	s.events[patientID] = append(s.events[patientID], event)
	s.persistLocked()
	return event, nil
}

// GetEvents returns all events for a patient, newest first. An unknown
// patient yields an empty list.
func (s *Store) GetEvents(patientID string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := append([]Event{}, s.events[patientID]...)
	sortEventsDesc(events)
	return events
}

// GetRecentEvents returns the patient's events whose timestamp falls within
// the trailing window, optionally filtered by type, newest first. Events
// with unparseable timestamps are skipped, never an error.
func (s *Store) GetRecentEvents(patientID string, windowHours int, eventTypes []EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	events := lo.Filter(s.events[patientID], func(ev Event, _ int) bool {
		t, ok := parseTimestamp(ev.Env().Timestamp)
		if !ok || t.Before(cutoff) {
			return false
		}
		return len(eventTypes) == 0 || lo.Contains(eventTypes, ev.Env().EventType)
	})
	sortEventsDesc(events)
	return events
}

// DeleteEvent removes the first event with the given id across all
// patients. Persists only when a removal happened.
func (s *Store) DeleteEvent(eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for patientID, events := range s.events {
		for i, ev := range events {
			if ev.Env().ID == eventID {
				s.events[patientID] = append(events[:i:i], events[i+1:]...)
				s.persistLocked()
				return true
			}
		}
	}
	return false
}
