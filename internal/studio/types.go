package studio

import "time"

const (
	SegmentStatusPending    = "pending"
	SegmentStatusProcessing = "processing"
	SegmentStatusComplete   = "complete"
	SegmentStatusFailed     = "failed"
)

// Scene is the studio's authored container of ordered segments. Version is
// a monotonic stamp bumped by every committed mutation; stale-version writes
// are rejected with a conflict.
type Scene struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id,omitempty"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	Segments  []Segment `json:"segments"`
}

// Clone returns a deep copy safe to mutate locally.
func (s Scene) Clone() Scene {
	out := s
	out.Segments = make([]Segment, len(s.Segments))
	copy(out.Segments, s.Segments)
	return out
}

// Segment is one ordered member of a scene. Only complete segments with an
// output ref are playable material; the rest are still being generated.
type Segment struct {
	ID           string  `json:"id"`
	SceneID      string  `json:"scene_id,omitempty"`
	OrderIndex   int     `json:"order_index"`
	Status       string  `json:"status"`
	Prompt       string  `json:"prompt,omitempty"`
	OutputRef    string  `json:"output_ref,omitempty"`
	ThumbnailRef string  `json:"thumbnail_ref,omitempty"`
	FullDuration float64 `json:"full_duration"`
	TrimStart    float64 `json:"trim_start"`
	TrimEnd      float64 `json:"trim_end"`
}

// Candidate is generated material offered for insertion into a timeline.
type Candidate struct {
	ID           string    `json:"id"`
	Label        string    `json:"label,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	MediaRef     string    `json:"media_ref"`
	ThumbnailRef string    `json:"thumbnail_ref,omitempty"`
	Duration     float64   `json:"duration"`
	CreatedAt    time.Time `json:"created_at"`
}

// MediaRef is the studio's handle for an uploaded file. Duration is echoed
// back when the studio probed it server-side; zero means unknown.
type MediaRef struct {
	Ref      string  `json:"ref"`
	AudioRef string  `json:"audio_ref,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// BakeSettings is the compositor knob set sent with every bake request.
type BakeSettings struct {
	FPS          float64 `json:"fps"`
	Codec        string  `json:"codec"`
	Quality      string  `json:"quality"`
	IncludeAudio bool    `json:"include_audio"`
}

// BakeClip is one by-value member of a bake request: resolved media refs
// plus the trim window, no engine-local state.
type BakeClip struct {
	MediaRef       string  `json:"media_ref"`
	AudioRef       string  `json:"audio_ref,omitempty"`
	TrimStart      float64 `json:"trim_start"`
	TrimEnd        float64 `json:"trim_end"`
	AudioTrimStart float64 `json:"audio_trim_start,omitempty"`
	AudioTrimEnd   float64 `json:"audio_trim_end,omitempty"`
	AudioGain      float64 `json:"audio_gain,omitempty"`
}

// BakeResult mirrors the compositor's response: exactly one of OutputRef or
// Reason is meaningful depending on Success.
type BakeResult struct {
	Success   bool   `json:"success"`
	OutputRef string `json:"output_url,omitempty"`
	Reason    string `json:"error,omitempty"`
}
