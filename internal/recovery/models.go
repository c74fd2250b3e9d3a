package recovery

import (
	"time"

	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// Snapshot is one recoverable working session: the ad-hoc clip list plus
// enough cursor state to put the user back where they were. Keyed by
// (PageType, ProjectID); each key holds at most one snapshot.
type Snapshot struct {
	PageType         string            `json:"page_type"`
	ProjectID        string            `json:"project_id"`
	Clips            timeline.Sequence `json:"clips"`
	PlayheadPosition float64           `json:"playhead_position"`
	SelectedClipID   string            `json:"selected_clip_id,omitempty"`
	IsDirty          bool              `json:"is_dirty"`
	SavedAt          time.Time         `json:"saved_at"`
}

// Recoverable reports whether the snapshot is worth offering back: an
// empty clip list has nothing to restore.
func (s *Snapshot) Recoverable() bool {
	return s != nil && len(s.Clips) > 0
}
