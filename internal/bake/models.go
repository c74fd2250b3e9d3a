package bake

import (
	"time"

	"github.com/vibeboard/vibeboard-engine/internal/studio"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// Bake mode: structured scenes are baked by reference (the compositor
// already holds the scene), ad-hoc sequences by value (the request carries
// every resolved media ref).
const (
	ModeByReference = "by_reference"
	ModeByValue     = "by_value"
)

// Config is the render knob set attached to one bake job.
type Config struct {
	FPS          float64 `json:"fps"`
	Codec        string  `json:"codec"`
	Quality      string  `json:"quality"`
	IncludeAudio bool    `json:"include_audio"`
}

func DefaultConfig() Config {
	return Config{
		FPS:          24,
		Codec:        "h264",
		Quality:      "high",
		IncludeAudio: true,
	}
}

// withDefaults fills unset fields; IncludeAudio keeps whatever the caller
// sent since false is a valid choice.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FPS <= 0 {
		c.FPS = def.FPS
	}
	if c.Codec == "" {
		c.Codec = def.Codec
	}
	if c.Quality == "" {
		c.Quality = def.Quality
	}
	return c
}

func (c Config) settings() studio.BakeSettings {
	return studio.BakeSettings{
		FPS:          c.FPS,
		Codec:        c.Codec,
		Quality:      c.Quality,
		IncludeAudio: c.IncludeAudio,
	}
}

// Job is one bake request and its outcome. Jobs are never retried; a
// repeated bake is a new independent job.
type Job struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	SceneID   string    `json:"scene_id,omitempty"`
	Config    Config    `json:"config"`
	ClipCount int       `json:"clip_count"`
	Status    string    `json:"status"`
	OutputRef string    `json:"output_ref,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
