package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

var (
	ErrSceneNotFound   = errors.New("scene not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoActiveScene   = errors.New("no active scene")
)

// StructuredProvider mirrors the studio's authored scenes. The local copy
// exists for playback continuity only: every committed mutation goes
// through the studio and is answered with the authoritative scene, which
// replaces the local one wholesale. Trim edits may be applied locally
// first so scrubbing feels immediate while the push is in flight.
type StructuredProvider struct {
	mu        sync.Mutex
	logger    *slog.Logger
	client    studio.Client
	projectID string
	scenes    []studio.Scene
	activeID  string
	notify    func()
}

func newStructuredProvider(client studio.Client, projectID string, logger *slog.Logger, notify func()) *StructuredProvider {
	return &StructuredProvider{
		logger:    logger,
		client:    client,
		projectID: projectID,
		notify:    notify,
	}
}

// Refresh replaces all local scene state with the studio's. The active
// scene is kept when it still exists, otherwise the first scene wins.
func (p *StructuredProvider) Refresh(ctx context.Context) error {
	scenes, err := p.client.ListScenes(ctx, p.projectID)
	if err != nil {
		return fmt.Errorf("refresh scenes: %w", err)
	}

	p.mu.Lock()
	p.scenes = scenes
	if p.findSceneLocked(p.activeID) == nil {
		p.activeID = ""
		if len(p.scenes) > 0 {
			p.activeID = p.scenes[0].ID
		}
	}
	p.mu.Unlock()
	p.notify()
	return nil
}

func (p *StructuredProvider) Scenes() []studio.Scene {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]studio.Scene, 0, len(p.scenes))
	for _, scene := range p.scenes {
		out = append(out, scene.Clone())
	}
	return out
}

func (p *StructuredProvider) ActiveSceneID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeID
}

func (p *StructuredProvider) SetActiveScene(sceneID string) error {
	p.mu.Lock()
	if p.findSceneLocked(sceneID) == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	p.activeID = sceneID
	p.mu.Unlock()
	p.notify()
	return nil
}

// Sequence projects the active scene into playable clips: complete
// segments with output media, in order. Everything else is still baking
// and stays off the timeline.
func (p *StructuredProvider) Sequence() timeline.Sequence {
	p.mu.Lock()
	defer p.mu.Unlock()

	scene := p.findSceneLocked(p.activeID)
	if scene == nil {
		return nil
	}

	segments := append([]studio.Segment(nil), scene.Segments...)
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].OrderIndex < segments[j].OrderIndex
	})

	var seq timeline.Sequence
	for _, seg := range segments {
		if seg.Status != studio.SegmentStatusComplete || seg.OutputRef == "" {
			continue
		}
		seq = append(seq, timeline.Clip{
			ID:           seg.ID,
			Label:        seg.Prompt,
			SourceKind:   timeline.SourceSegment,
			MediaRef:     seg.OutputRef,
			ThumbnailRef: seg.ThumbnailRef,
			FullDuration: seg.FullDuration,
			TrimStart:    seg.TrimStart,
			TrimEnd:      seg.TrimEnd,
		})
	}
	return seq
}

// ApplyTrimLocal updates a segment's trim window on the local copy only,
// keeping playback responsive while the slider moves. Nothing is pushed.
func (p *StructuredProvider) ApplyTrimLocal(sceneID, segmentID string, trimStart, trimEnd float64) error {
	p.mu.Lock()
	scene := p.findSceneLocked(sceneID)
	if scene == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	seg := findSegment(scene, segmentID)
	if seg == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}

	check := timeline.Clip{FullDuration: seg.FullDuration, TrimStart: trimStart, TrimEnd: trimEnd}
	if err := check.Validate(); err != nil {
		p.mu.Unlock()
		return err
	}

	seg.TrimStart = trimStart
	seg.TrimEnd = trimEnd
	p.mu.Unlock()
	p.notify()
	return nil
}

// PushTrim commits a segment's current local trim window to the studio.
// The authoritative response replaces the local scene. A stale version
// triggers one refresh and surfaces ErrVersionConflict to the caller.
func (p *StructuredProvider) PushTrim(ctx context.Context, sceneID, segmentID string) error {
	p.mu.Lock()
	scene := p.findSceneLocked(sceneID)
	if scene == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	seg := findSegment(scene, segmentID)
	if seg == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	trimStart, trimEnd, version := seg.TrimStart, seg.TrimEnd, scene.Version
	p.mu.Unlock()

	updated, err := p.client.PatchSegmentTrim(ctx, sceneID, segmentID, trimStart, trimEnd, version)
	if err != nil {
		return p.handleMutationError(ctx, "push trim", err)
	}
	p.replaceScene(updated)
	return nil
}

// InsertSegment asks the studio to insert media into a scene. The local
// copy is never spliced optimistically: the inserted segment's identity
// and the scene's new version only exist in the authoritative response.
func (p *StructuredProvider) InsertSegment(ctx context.Context, sceneID, mediaRef string, index int) (*studio.Scene, error) {
	p.mu.Lock()
	scene := p.findSceneLocked(sceneID)
	if scene == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	version := scene.Version
	if index < 0 {
		index = 0
	}
	if index > len(scene.Segments) {
		index = len(scene.Segments)
	}
	p.mu.Unlock()

	updated, err := p.client.InsertSegment(ctx, sceneID, mediaRef, index, version)
	if err != nil {
		return nil, p.handleMutationError(ctx, "insert segment", err)
	}
	p.replaceScene(updated)
	return updated, nil
}

func (p *StructuredProvider) RemoveSegment(ctx context.Context, sceneID, segmentID string) (*studio.Scene, error) {
	p.mu.Lock()
	scene := p.findSceneLocked(sceneID)
	if scene == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	if findSegment(scene, segmentID) == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, segmentID)
	}
	version := scene.Version
	p.mu.Unlock()

	updated, err := p.client.RemoveSegment(ctx, sceneID, segmentID, version)
	if err != nil {
		return nil, p.handleMutationError(ctx, "remove segment", err)
	}
	p.replaceScene(updated)
	return updated, nil
}

// handleMutationError refreshes once on version conflicts so the next
// attempt starts from current state, then hands the error back up.
func (p *StructuredProvider) handleMutationError(ctx context.Context, op string, err error) error {
	if errors.Is(err, studio.ErrVersionConflict) {
		p.logger.Warn("scene version conflict, refreshing", "op", op)
		if refreshErr := p.Refresh(ctx); refreshErr != nil {
			p.logger.Warn("refresh after conflict failed", "op", op, "error", refreshErr)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *StructuredProvider) replaceScene(scene *studio.Scene) {
	if scene == nil {
		return
	}
	p.mu.Lock()
	replaced := false
	for i := range p.scenes {
		if p.scenes[i].ID == scene.ID {
			p.scenes[i] = scene.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		p.scenes = append(p.scenes, scene.Clone())
	}
	p.mu.Unlock()
	p.notify()
}

func (p *StructuredProvider) findSceneLocked(sceneID string) *studio.Scene {
	for i := range p.scenes {
		if p.scenes[i].ID == sceneID {
			return &p.scenes[i]
		}
	}
	return nil
}

func findSegment(scene *studio.Scene, segmentID string) *studio.Segment {
	for i := range scene.Segments {
		if scene.Segments[i].ID == segmentID {
			return &scene.Segments[i]
		}
	}
	return nil
}
