package runtime

import (
	"messenger/contract"
	"messenger/domain"
	"sync"
)

var _ contract.ISessionRegistry = (*SessionRegistry)(nil)

type Set map[string]struct{}

type session struct {
	userID domain.UserID
	sink   contract.EventSink
	groups map[domain.GroupID]struct{}
}

// SessionRegistry maps users to their live connections and groups to the
// connections subscribed to them. Nothing here is persisted.
type SessionRegistry struct {
	mu         sync.RWMutex
	sessions   map[string]*session    // connection -> session
	userConns  map[domain.UserID]Set  // user -> connections
	groupConns map[domain.GroupID]Set // group -> subscribed connections
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*session),
		userConns:  make(map[domain.UserID]Set),
		groupConns: make(map[domain.GroupID]Set),
	}
}

// Connect registers a live connection. Reconnecting an existing connection id
// replaces its sink and owner but drops its subscriptions.
func (r *SessionRegistry) Connect(connectionID string, userID domain.UserID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(connectionID)
	r.sessions[connectionID] = &session{userID: userID, sink: sink, groups: make(map[domain.GroupID]struct{})}
	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(Set)
	}
	r.userConns[userID][connectionID] = struct{}{}
}

// Disconnect forgets a connection and every subscription it held.
// Unknown ids are ignored.
func (r *SessionRegistry) Disconnect(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(connectionID)
}

// remove must be called with the write lock held.
func (r *SessionRegistry) remove(connectionID string) {
	s, ok := r.sessions[connectionID]
	if !ok {
		return
	}
	for groupID := range s.groups {
		r.unsubscribe(connectionID, groupID)
	}
	if conns, ok := r.userConns[s.userID]; ok {
		delete(conns, connectionID)
		// No empty sets are kept around
		if len(conns) == 0 {
			delete(r.userConns, s.userID)
		}
	}
	delete(r.sessions, connectionID)
}

// Subscribe adds groupID to the connection's subscriptions. Membership is not
// checked here; the fan-out filters non members at delivery time.
// It returns false when the connection is unknown.
func (r *SessionRegistry) Subscribe(connectionID string, groupID domain.GroupID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[connectionID]
	if !ok {
		return false
	}
	s.groups[groupID] = struct{}{}
	if _, ok := r.groupConns[groupID]; !ok {
		r.groupConns[groupID] = make(Set)
	}
	r.groupConns[groupID][connectionID] = struct{}{}
	return true
}

func (r *SessionRegistry) Unsubscribe(connectionID string, groupID domain.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribe(connectionID, groupID)
}

func (r *SessionRegistry) unsubscribe(connectionID string, groupID domain.GroupID) {
	if s, ok := r.sessions[connectionID]; ok {
		delete(s.groups, groupID)
	}
	if conns, ok := r.groupConns[groupID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(r.groupConns, groupID)
		}
	}
}

// ConnectionsOf returns a copy; callers may range over it while the registry changes.
func (r *SessionRegistry) ConnectionsOf(userID domain.UserID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.userConns[userID])
}

func (r *SessionRegistry) SubscribersOf(groupID domain.GroupID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.groupConns[groupID])
}

func (r *SessionRegistry) Sink(connectionID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	if !ok {
		return nil, false
	}
	return s.sink, true
}

func (r *SessionRegistry) UserOf(connectionID string) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	if !ok {
		return 0, false
	}
	return s.userID, true
}

// Count is the number of live connections.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func keys(set Set) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
