package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/sirupsen/logrus"
)

// AllocationSession holds the current snapshot of one operator session together with
// the violations of the last engine call. Each operation swaps the whole snapshot.
type AllocationSession struct {
	ID string

	mu         sync.Mutex
	state      *AllocationState
	violations []Violation
	version    int64
	policy     AllocationPolicy
	logger     *logrus.Logger
	now        func() time.Time
}

// SessionSnapshot is a read-only copy of a session handed to callers.
type SessionSnapshot struct {
	SessionId  string           `json:"session_id"`
	State      *AllocationState `json:"state"`
	Violations []Violation      `json:"violations"`
	Version    int64            `json:"version"`
}

func NewAllocationSession(id string, seed *AllocationState, policy AllocationPolicy, logger *logrus.Logger) (*AllocationSession, error) {
	state, err := PrepareSnapshot(seed)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AllocationSession{
		ID:         id,
		state:      state,
		violations: []Violation{},
		policy:     policy,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *AllocationSession) Policy() AllocationPolicy {
	return s.policy
}

func (s *AllocationSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AllocationSession) snapshotLocked() SessionSnapshot {
	violations := make([]Violation, len(s.violations))
	copy(violations, s.violations)
	return SessionSnapshot{
		SessionId:  s.ID,
		State:      s.state.Clone(),
		Violations: violations,
		Version:    s.version,
	}
}

// replaceLocked installs the result of an engine call and bumps the version.
func (s *AllocationSession) replaceLocked(op string, state *AllocationState, violations []Violation) {
	s.state = state
	if violations != nil {
		s.violations = violations
	}
	s.version++
	s.logger.WithFields(logrus.Fields{
		"session_id":      s.ID,
		"operation":       op,
		"version":         s.version,
		"remaining_stock": state.RemainingStock(),
		"violations":      len(s.violations),
	}).Debug("allocation state replaced")
}

func (s *AllocationSession) RunAutoAssignment() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, violations := RunAutoAssignmentWithPolicy(s.state, s.policy)
	s.replaceLocked("auto_assignment", next, violations)
	return s.snapshotLocked()
}

// UpdateAllocation applies a manual quantity. The version only moves when the order
// and its customer exist.
func (s *AllocationSession) UpdateAllocation(orderId string, desiredQty int) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, ok := s.state.ResolveOrder(orderId); !ok {
		s.violations = []Violation{}
		s.logger.WithFields(logrus.Fields{
			"session_id": s.ID,
			"order_id":   orderId,
		}).Debug("manual allocation ignored: order or customer not found")
		return s.snapshotLocked()
	}
	next, violations := UpdateAllocation(s.state, orderId, desiredQty)
	s.replaceLocked("update_allocation", next, violations)
	return s.snapshotLocked()
}

func (s *AllocationSession) ResetAllocations() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked("reset", ResetAllocations(s.state), []Violation{})
	return s.snapshotLocked()
}

// AddOrder keeps the violations of the previous call.
func (s *AllocationSession) AddOrder() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.replaceLocked("add_order", AddOrder(s.state), nil)
	return s.snapshotLocked()
}

func (s *AllocationSession) Save() SaveAck {
	s.mu.Lock()
	defer s.mu.Unlock()

	ack := Save(s.state, s.now())
	s.replaceLocked("save", s.state, nil)
	ack.Version = s.version
	return ack
}

// SessionStore is an in-memory registry of allocation sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*AllocationSession
	policy   AllocationPolicy
	logger   *logrus.Logger
}

func NewSessionStore(policy AllocationPolicy, logger *logrus.Logger) *SessionStore {
	return &SessionStore{
		sessions: map[string]*AllocationSession{},
		policy:   policy,
		logger:   logger,
	}
}

func (s *SessionStore) Create(seed *AllocationState) (*AllocationSession, error) {
	session, err := NewAllocationSession(uuid.NewString(), seed, s.policy, s.logger)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session, nil
}

func (s *SessionStore) Get(id string) (*AllocationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, utils.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return utils.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
