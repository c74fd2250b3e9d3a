package studio

import (
	"context"
	"io"
)

// Client is everything the engine asks of the studio backend: the scene
// store, media uploads, generation candidates, and the compositor. Scene
// mutations return the authoritative new scene so callers replace rather
// than splice their local copies.
type Client interface {
	ListScenes(ctx context.Context, projectID string) ([]Scene, error)
	InsertSegment(ctx context.Context, sceneID, mediaRef string, index int, version int64) (*Scene, error)
	PatchSegmentTrim(ctx context.Context, sceneID, segmentID string, trimStart, trimEnd float64, version int64) (*Scene, error)
	RemoveSegment(ctx context.Context, sceneID, segmentID string, version int64) (*Scene, error)

	Upload(ctx context.Context, filename string, r io.Reader) (*MediaRef, error)
	ListCandidates(ctx context.Context, projectID, filter string) ([]Candidate, error)

	BakeScene(ctx context.Context, sceneID string, settings BakeSettings) (*BakeResult, error)
	BakeClips(ctx context.Context, clips []BakeClip, settings BakeSettings) (*BakeResult, error)
}
