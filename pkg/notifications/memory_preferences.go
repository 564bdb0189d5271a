package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

type preferenceKey struct {
	userID  string
	typ     Type
	channel Channel
}

// MemoryPreferenceStore is an in-memory implementation of the PreferenceStore
// interface.
type MemoryPreferenceStore struct {
	prefs map[preferenceKey]Preference
	mu    sync.RWMutex
}

// NewMemoryPreferenceStore creates a new in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{
		prefs: make(map[preferenceKey]Preference),
	}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, userID string, t Type, ch Channel) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, exists := s.prefs[preferenceKey{userID, t, ch}]
	if !exists {
		return nil, ErrPreferenceNotFound
	}

	return &pref, nil
}

func (s *MemoryPreferenceStore) Upsert(ctx context.Context, pref Preference) error {
	if err := pref.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(pref)
	return nil
}

func (s *MemoryPreferenceStore) upsertLocked(pref Preference) {
	key := preferenceKey{pref.UserID, pref.Type, pref.Channel}
	now := time.Now()
	if existing, exists := s.prefs[key]; exists {
		pref.CreatedAt = existing.CreatedAt
	} else {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now
	s.prefs[key] = pref
}

func (s *MemoryPreferenceStore) BulkUpsert(ctx context.Context, prefs []Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, pref := range prefs {
		if err := pref.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		s.upsertLocked(pref)
	}

	return errors.Join(errs...)
}

func (s *MemoryPreferenceStore) EnabledChannelsFor(ctx context.Context, userID string, t Type) ([]Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channels []Channel
	for _, ch := range AllChannels() {
		if pref, exists := s.prefs[preferenceKey{userID, t, ch}]; exists && pref.Enabled {
			channels = append(channels, ch)
		}
	}

	return channels, nil
}

func (s *MemoryPreferenceStore) InitializeDefaultsForUser(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range AllTypes() {
		for _, ch := range AllChannels() {
			key := preferenceKey{userID, t, ch}
			if _, exists := s.prefs[key]; exists {
				continue
			}
			s.upsertLocked(Preference{
				UserID:    userID,
				Type:      t,
				Channel:   ch,
				Enabled:   true,
				Frequency: FrequencyImmediate,
			})
		}
	}

	return nil
}
