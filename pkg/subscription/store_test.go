package subscription_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/brokerpad/pkg/subscription"
)

// memStore is an in-memory RecordStore with real compare-and-set
// semantics, shared by the package tests.
type memStore struct {
	mu      sync.Mutex
	records map[string]subscription.Record // keyed by user id

	// updateHook runs before each Update while holding no lock,
	// letting tests inject concurrent writers.
	updateHook func()
}

func newMemStore(records ...subscription.Record) *memStore {
	s := &memStore{records: make(map[string]subscription.Record)}
	for _, r := range records {
		s.records[r.UserID] = r
	}
	return s
}

func (s *memStore) ByUser(_ context.Context, userID string) (*subscription.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, subscription.ErrRecordNotFound
	}
	rec.UserID = userID
	return &rec, nil
}

func (s *memStore) BySubscriptionID(_ context.Context, subID string) (*subscription.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, rec := range s.records {
		if rec.SubscriptionID == subID {
			rec.UserID = userID
			return &rec, nil
		}
	}
	return nil, subscription.ErrRecordNotFound
}

func (s *memStore) Update(_ context.Context, record *subscription.Record) error {
	if s.updateHook != nil {
		s.updateHook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[record.UserID]
	if !ok {
		return subscription.ErrRecordNotFound
	}
	if stored.Version != record.Version {
		return subscription.ErrVersionConflict
	}

	record.Version++
	s.records[record.UserID] = *record
	return nil
}

func (s *memStore) get(userID string) subscription.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.records[userID]
	rec.UserID = userID
	return rec
}

// memProfiles is a fixed ProfileSource keyed by mobile number.
type memProfiles map[string]subscription.Profile

func (m memProfiles) ProfileByMobile(_ context.Context, mobile string) (*subscription.Profile, error) {
	p, ok := m[mobile]
	if !ok {
		return nil, subscription.ErrUserNotFound
	}
	return &p, nil
}
