package notifications

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	notifications map[string][]Notification // userID -> records
	mu            sync.RWMutex
}

// NewMemoryStorage creates a new in-memory notification storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		notifications: make(map[string][]Notification),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, notif Notification) error {
	if err := notif.Validate(); err != nil {
		return err
	}
	if notif.ID == "" {
		return ErrInvalidNotification
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}

	s.notifications[notif.UserID] = append(s.notifications[notif.UserID], notif)
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, userID, notifID string) (*Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, n := range s.notifications[userID] {
		if n.ID == notifID {
			// Return a copy to prevent external mutation of stored data.
			notif := n
			return &notif, nil
		}
	}

	return nil, ErrNotificationNotFound
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var filtered []Notification
	for _, n := range s.notifications[userID] {
		if !matchesListOptions(n, opts) {
			continue
		}
		filtered = append(filtered, n)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(filtered) {
		return []Notification{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(filtered) {
		end = len(filtered)
	}

	return filtered[start:end], nil
}

func matchesListOptions(n Notification, opts ListOptions) bool {
	if n.IsExpired() {
		return false
	}
	if opts.OnlyUnread && n.Read {
		return false
	}
	if opts.EventKey != "" && n.EventKey != opts.EventKey {
		return false
	}
	if len(opts.Types) > 0 {
		found := false
		for _, t := range opts.Types {
			if n.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if opts.Since != nil && n.CreatedAt.Before(*opts.Since) {
		return false
	}
	return true
}

func (s *MemoryStorage) MarkRead(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]bool, len(notifIDs))
	for _, id := range notifIDs {
		idSet[id] = true
	}

	records := s.notifications[userID]
	for i := range records {
		if idSet[records[i].ID] {
			records[i].MarkAsRead()
		}
	}

	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, userID string, notifIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, exists := s.notifications[userID]
	if !exists {
		return nil
	}

	idSet := make(map[string]bool, len(notifIDs))
	for _, id := range notifIDs {
		idSet[id] = true
	}

	var kept []Notification
	for _, n := range records {
		if !idSet[n.ID] {
			kept = append(kept, n)
		}
	}

	s.notifications[userID] = kept
	return nil
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications[userID] {
		if !n.Read && !n.IsExpired() {
			count++
		}
	}

	return count, nil
}
