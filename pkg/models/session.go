package models

import (
	"time"
)

// SideEffectKind identifies what happens with the rows after an approved
// query executes.
type SideEffectKind string

const (
	// SideEffectNone summarizes the rows as text.
	SideEffectNone SideEffectKind = "none"
	// SideEffectExport renders the rows to a downloadable file.
	SideEffectExport SideEffectKind = "export"
	// SideEffectChart renders the rows to a chart image.
	SideEffectChart SideEffectKind = "chart"
)

// SideEffect is the export or chart request attached to a pending action.
type SideEffect struct {
	Kind   SideEffectKind `json:"kind"`
	Format ExportFormat   `json:"format,omitempty"`
	Chart  *ChartSpec     `json:"chart,omitempty"`
}

// PendingAction is a validated SQL request awaiting explicit human
// approval. At most one instance is live per session.
type PendingAction struct {
	ID            string     `json:"id"`
	SQL           string     `json:"sql"`
	OriginalQuery string     `json:"original_query"`
	SideEffect    SideEffect `json:"side_effect"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SessionState holds everything a single interactive session owns. It is
// passed explicitly to the services that operate on it and is never shared
// across sessions.
type SessionState struct {
	ID                string            `json:"id"`
	LastResultRows    []Row             `json:"-"`
	LastResultColumns []string          `json:"-"`
	Pending           *PendingAction    `json:"pending,omitempty"`
	ChartPrefs        *ChartPreferences `json:"chart_prefs,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	LastActivityAt    time.Time         `json:"last_activity_at"`
}

// NewSessionState returns an empty session in the idle state.
func NewSessionState(id string) *SessionState {
	now := time.Now()
	return &SessionState{
		ID:             id,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Reset clears results, any pending action, and chart preferences. The
// session itself stays usable.
func (s *SessionState) Reset() {
	s.LastResultRows = nil
	s.LastResultColumns = nil
	s.Pending = nil
	s.ChartPrefs = nil
	s.Touch()
}

// Touch records activity for idle-session expiry.
func (s *SessionState) Touch() {
	s.LastActivityAt = time.Now()
}

// HasPending reports whether a pending action awaits approval.
func (s *SessionState) HasPending() bool {
	return s.Pending != nil
}

// HasResults reports whether a prior query left rows to export or chart.
func (s *SessionState) HasResults() bool {
	return len(s.LastResultRows) > 0
}

// ColumnNames returns the column names of the last result set, preferring
// the recorded select-list order over map iteration order.
func (s *SessionState) ColumnNames() []string {
	if len(s.LastResultColumns) > 0 {
		return s.LastResultColumns
	}
	if len(s.LastResultRows) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.LastResultRows[0]))
	for name := range s.LastResultRows[0] {
		names = append(names, name)
	}
	return names
}
