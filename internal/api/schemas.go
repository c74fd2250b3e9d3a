package api

import (
	"github.com/vibeboard/vibeboard-engine/internal/bake"
	"github.com/vibeboard/vibeboard-engine/internal/editor"
	"github.com/vibeboard/vibeboard-engine/internal/overlay"
	"github.com/vibeboard/vibeboard-engine/internal/player"
	"github.com/vibeboard/vibeboard-engine/internal/recovery"
	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	EngineID string `json:"engine_id"`
}

// StateResponse is the full engine snapshot a surface needs to render.
type StateResponse struct {
	EngineID  string            `json:"engine_id"`
	PageType  string            `json:"page_type"`
	ProjectID string            `json:"project_id,omitempty"`
	Player    player.Snapshot   `json:"player"`
	Context   ContextResponse   `json:"context"`
	Recovery  RecoveryResponse  `json:"recovery"`
	Overlays  []overlay.Element `json:"overlays"`
}

// ContextResponse describes the active edit context and its projection.
type ContextResponse struct {
	Mode          string            `json:"mode"`
	ActiveSceneID string            `json:"active_scene_id,omitempty"`
	Sequence      timeline.Sequence `json:"sequence"`
	TotalDuration float64           `json:"total_duration"`
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}

type ScenesResponse struct {
	ActiveSceneID string         `json:"active_scene_id,omitempty"`
	Scenes        []studio.Scene `json:"scenes"`
}

type SceneResponse struct {
	Scene *studio.Scene `json:"scene"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type StepRequest struct {
	Direction int `json:"direction"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
}

type SkipRequest struct {
	Direction string `json:"direction"`
}

// MuteRequest sets an explicit mute state; an empty body toggles.
type MuteRequest struct {
	Muted *bool `json:"muted"`
}

type MediaErrorRequest struct {
	MediaRef string `json:"media_ref"`
	Message  string `json:"message,omitempty"`
}

type KeyRequest struct {
	Key              string `json:"key"`
	TextInputFocused bool   `json:"text_input_focused,omitempty"`
}

type KeyResponse struct {
	Command string          `json:"command,omitempty"`
	Handled bool            `json:"handled"`
	Player  player.Snapshot `json:"player"`
}

type FromCandidateRequest struct {
	CandidateID string `json:"candidate_id"`
}

type CandidatesResponse struct {
	Candidates []studio.Candidate `json:"candidates"`
}

type UploadResponse struct {
	Clip      timeline.Clip `json:"clip"`
	MediaID   string        `json:"media_id"`
	Ref       string        `json:"ref"`
	StudioRef string        `json:"studio_ref,omitempty"`
}

// TrimRequest adjusts a segment's trim window. Commit pushes the window
// to the studio; otherwise it only lands on the local copy.
type TrimRequest struct {
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
	Commit    bool    `json:"commit,omitempty"`
}

type DragHoverRequest struct {
	Target *editor.DropTarget `json:"target"`
}

type DropResponse struct {
	Outcome string `json:"outcome"`
}

type AddOverlayRequest struct {
	Kind      string            `json:"kind"`
	AssetRef  string            `json:"asset_ref,omitempty"`
	StartTime float64           `json:"start_time"`
	EndTime   float64           `json:"end_time"`
	Payload   map[string]string `json:"payload,omitempty"`
}

type RepositionOverlayRequest struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type OverlaysResponse struct {
	Overlays []overlay.Element `json:"overlays"`
}

type RecoveryResponse struct {
	Mode  string             `json:"mode"`
	Offer *recovery.Snapshot `json:"offer,omitempty"`
}

type RestoreResponse struct {
	Snapshot *recovery.Snapshot `json:"snapshot"`
}

type StartBakeRequest struct {
	Mode    string      `json:"mode,omitempty"`
	SceneID string      `json:"scene_id,omitempty"`
	Config  bake.Config `json:"config"`
}

type JobsResponse struct {
	Jobs []*bake.Job `json:"jobs"`
}

type ExportRequest struct {
	Title     string  `json:"title"`
	FrameRate float64 `json:"frame_rate,omitempty"`
}

type ExportResponse struct {
	Filename string   `json:"filename"`
	Content  string   `json:"content"`
	Events   int      `json:"events"`
	Skipped  []string `json:"skipped_clips,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
