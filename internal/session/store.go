package session

import "sort"

// Store owns every PairingSession, keyed by "beforeId::afterId". It is the
// sole holder of session pointers; callers work against the active session
// and switch the active panel pair through the store. Single-threaded by
// design, like the rest of the engine.
type Store struct {
	sessions  map[string]*PairingSession
	active    *PairingSession
	activeKey string
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*PairingSession)}
}

// Key builds the store key for a panel pair. The key is undefined when the
// two panels are the same or either side is unselected.
func Key(beforePanelID, afterPanelID string) (string, bool) {
	if beforePanelID == "" || afterPanelID == "" || beforePanelID == afterPanelID {
		return "", false
	}
	return beforePanelID + "::" + afterPanelID, true
}

// Active returns the currently active session, or nil when no valid panel
// pair is selected.
func (st *Store) Active() *PairingSession {
	return st.active
}

// Switch changes the active panel pair. The current active session is
// persisted into the store first if it holds any data; the session for the
// new pair is then looked up or created and made active. An undefined key
// (same panel on both sides, or a side unselected) clears the active
// session and returns nil.
func (st *Store) Switch(beforePanelID, afterPanelID string) *PairingSession {
	st.stashActive()

	key, ok := Key(beforePanelID, afterPanelID)
	if !ok {
		st.active = nil
		st.activeKey = ""
		return nil
	}

	sess, exists := st.sessions[key]
	if !exists {
		sess = New(beforePanelID, afterPanelID)
	}
	st.active = sess
	st.activeKey = key
	return sess
}

// stashActive stores the active session under its key if it has data.
// Empty sessions are simply dropped; they are recreated on demand.
func (st *Store) stashActive() {
	if st.active == nil || st.activeKey == "" {
		return
	}
	if st.active.HasData() {
		st.sessions[st.activeKey] = st.active
	}
}

// Get returns the stored session for a panel pair, if any. The active
// session is visible here too once it holds data and has been stashed or
// looked up again; Get never creates.
func (st *Store) Get(beforePanelID, afterPanelID string) (*PairingSession, bool) {
	key, ok := Key(beforePanelID, afterPanelID)
	if !ok {
		return nil, false
	}
	if key == st.activeKey && st.active != nil {
		return st.active, true
	}
	sess, exists := st.sessions[key]
	return sess, exists
}

// Sessions returns every session holding data, including the active one,
// ordered by session id for stable iteration.
func (st *Store) Sessions() []*PairingSession {
	st.stashActive()
	out := make([]*PairingSession, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// Len returns the number of stored sessions with data.
func (st *Store) Len() int {
	st.stashActive()
	return len(st.sessions)
}
