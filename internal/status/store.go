package status

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrEmptyName is returned by Update when the service name is empty or
// whitespace-only. No record is created in that case.
var ErrEmptyName = errors.New("service name cannot be empty")

// Record is the current state of one monitored service. The Store hands
// out copies; callers never see the live map entry.
type Record struct {
	ServiceName  string            `json:"service_name"`
	Status       Status            `json:"status"`
	LastCheckIn  time.Time         `json:"last_check_in"`
	Message      string            `json:"message,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CheckInCount int               `json:"check_in_count"`
}

// Transition pairs a record with the status it held before the change.
type Transition struct {
	Record   Record
	Previous Status
}

// Store is the in-memory map from service name to Record. It is the
// only writer of records; everything it returns is a copy. State is
// memory-resident and resets on restart.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string // insertion order, for stable GetAll

	now func() time.Time // overridable in tests
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*Record),
		now:     time.Now,
	}
}

// Update creates or updates the record for name. Metadata is merged
// key-by-key (new values overwrite, absent keys persist), the message
// is replaced, and CheckInCount is incremented even when the status is
// unchanged. The previous status is returned only when it differs from
// the new one, signalling a transition to the caller.
func (s *Store) Update(name string, st Status, message string, metadata map[string]string) (Record, *Status, error) {
	if strings.TrimSpace(name) == "" {
		return Record{}, nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	rec, ok := s.records[name]
	if !ok {
		rec = &Record{
			ServiceName:  name,
			Status:       st,
			LastCheckIn:  now,
			Message:      message,
			Metadata:     cloneMetadata(metadata),
			CheckInCount: 1,
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]string)
		}
		s.records[name] = rec
		s.order = append(s.order, name)
		log.Printf("status: new service registered - %s (%s)", name, st)
		return copyRecord(rec), nil, nil
	}

	previous := rec.Status
	rec.Status = st
	rec.LastCheckIn = now
	rec.Message = message
	rec.CheckInCount++
	for k, v := range metadata {
		rec.Metadata[k] = v
	}

	if previous != st {
		prev := previous
		return copyRecord(rec), &prev, nil
	}
	return copyRecord(rec), nil, nil
}

// Get returns the record for name, or nil if it does not exist.
func (s *Store) Get(name string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[name]
	if !ok {
		return nil
	}
	out := copyRecord(rec)
	return &out
}

// GetAll returns all records in insertion order.
func (s *Store) GetAll() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, name := range s.order {
		out = append(out, copyRecord(s.records[name]))
	}
	return out
}

// GetByStatus returns all records whose status matches exactly.
func (s *Store) GetByStatus(st Status) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, name := range s.order {
		if rec := s.records[name]; rec.Status == st {
			out = append(out, copyRecord(rec))
		}
	}
	return out
}

// Remove deletes the record for name. It reports whether the record
// existed. Notification history is owned elsewhere and is not touched.
func (s *Store) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return false
	}
	delete(s.records, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	log.Printf("status: service removed - %s", name)
	return true
}

// Count returns the number of tracked services.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// CheckStale demotes every UP or DEGRADED record whose last check-in is
// at least timeout old to DOWN, and returns the resulting transitions.
// Records already DOWN or UNKNOWN are never touched. Note that this
// call mutates state while scanning it: each demotion is committed
// under the store lock before the transitions are returned.
//
// The sweep writes status and message directly; it does not go through
// Update, so CheckInCount and LastCheckIn are left as-is. A stale
// service therefore keeps the timestamp of its last real check-in.
func (s *Store) CheckStale(timeout time.Duration) []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var stale []Transition

	for _, name := range s.order {
		rec := s.records[name]
		if rec.Status != Up && rec.Status != Degraded {
			continue
		}
		elapsed := now.Sub(rec.LastCheckIn)
		if elapsed < timeout {
			continue
		}

		previous := rec.Status
		rec.Status = Down
		rec.Message = fmt.Sprintf("No check-in for %d seconds (timeout: %d seconds)",
			int(elapsed.Seconds()), int(timeout.Seconds()))

		log.Printf("status: service %s marked stale (was %s, last check-in %s ago)",
			name, previous, elapsed.Round(time.Second))

		stale = append(stale, Transition{Record: copyRecord(rec), Previous: previous})
	}
	return stale
}

func copyRecord(rec *Record) Record {
	out := *rec
	out.Metadata = cloneMetadata(rec.Metadata)
	return out
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
