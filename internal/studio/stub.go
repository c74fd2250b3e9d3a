package studio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// StubClient is an in-memory studio used when no backend is configured.
// It keeps real scene state (ordering, version stamps, conflicts) so the
// engine behaves the same offline, just without persistence.
type StubClient struct {
	mu         sync.Mutex
	logger     *slog.Logger
	scenes     map[string]*Scene
	order      []string
	candidates []Candidate
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{
		logger: logger,
		scenes: make(map[string]*Scene),
	}
}

// SeedScene installs a scene, replacing any previous one with the same id.
func (s *StubClient) SeedScene(scene Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scenes[scene.ID]; !exists {
		s.order = append(s.order, scene.ID)
	}
	clone := scene.Clone()
	s.scenes[scene.ID] = &clone
}

func (s *StubClient) SeedCandidates(candidates []Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]Candidate(nil), candidates...)
}

func (s *StubClient) ListScenes(ctx context.Context, projectID string) ([]Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Scene, 0, len(s.order))
	for _, id := range s.order {
		scene := s.scenes[id]
		if projectID != "" && scene.ProjectID != "" && scene.ProjectID != projectID {
			continue
		}
		out = append(out, scene.Clone())
	}
	return out, nil
}

func (s *StubClient) InsertSegment(ctx context.Context, sceneID, mediaRef string, index int, version int64) (*Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene, err := s.sceneForWrite(sceneID, version)
	if err != nil {
		return nil, err
	}

	if index < 0 {
		index = 0
	}
	if index > len(scene.Segments) {
		index = len(scene.Segments)
	}

	segment := Segment{
		ID:           uuid.NewString(),
		SceneID:      sceneID,
		Status:       SegmentStatusComplete,
		OutputRef:    mediaRef,
		FullDuration: 5,
	}
	scene.Segments = append(scene.Segments, Segment{})
	copy(scene.Segments[index+1:], scene.Segments[index:])
	scene.Segments[index] = segment
	reindex(scene)
	scene.Version++

	s.logger.Info("studio stub: segment inserted", "scene_id", sceneID, "index", index, "version", scene.Version)
	clone := scene.Clone()
	return &clone, nil
}

func (s *StubClient) PatchSegmentTrim(ctx context.Context, sceneID, segmentID string, trimStart, trimEnd float64, version int64) (*Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene, err := s.sceneForWrite(sceneID, version)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range scene.Segments {
		if scene.Segments[i].ID == segmentID {
			scene.Segments[i].TrimStart = trimStart
			scene.Segments[i].TrimEnd = trimEnd
			found = true
			break
		}
	}
	if !found {
		return nil, &APIError{StatusCode: 404, Body: fmt.Sprintf("segment %s not found", segmentID)}
	}
	scene.Version++

	clone := scene.Clone()
	return &clone, nil
}

func (s *StubClient) RemoveSegment(ctx context.Context, sceneID, segmentID string, version int64) (*Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scene, err := s.sceneForWrite(sceneID, version)
	if err != nil {
		return nil, err
	}

	kept := scene.Segments[:0]
	found := false
	for _, seg := range scene.Segments {
		if seg.ID == segmentID {
			found = true
			continue
		}
		kept = append(kept, seg)
	}
	if !found {
		return nil, &APIError{StatusCode: 404, Body: fmt.Sprintf("segment %s not found", segmentID)}
	}
	scene.Segments = kept
	reindex(scene)
	scene.Version++

	clone := scene.Clone()
	return &clone, nil
}

func (s *StubClient) Upload(ctx context.Context, filename string, r io.Reader) (*MediaRef, error) {
	size, err := io.Copy(io.Discard, r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	ref := "stub://media/" + uuid.NewString()
	s.logger.Info("studio stub: upload accepted", "filename", filename, "bytes", size, "ref", ref)
	return &MediaRef{Ref: ref}, nil
}

func (s *StubClient) ListCandidates(ctx context.Context, projectID, filter string) ([]Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		if filter != "" && c.Kind != filter {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *StubClient) BakeScene(ctx context.Context, sceneID string, settings BakeSettings) (*BakeResult, error) {
	s.logger.Info("studio stub: scene bake requested", "scene_id", sceneID, "codec", settings.Codec)
	return &BakeResult{Success: true, OutputRef: "stub://bakes/" + uuid.NewString()}, nil
}

func (s *StubClient) BakeClips(ctx context.Context, clips []BakeClip, settings BakeSettings) (*BakeResult, error) {
	s.logger.Info("studio stub: clip bake requested", "clip_count", len(clips), "codec", settings.Codec)
	return &BakeResult{Success: true, OutputRef: "stub://bakes/" + uuid.NewString()}, nil
}

func (s *StubClient) sceneForWrite(sceneID string, version int64) (*Scene, error) {
	scene, ok := s.scenes[sceneID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Body: fmt.Sprintf("scene %s not found", sceneID)}
	}
	if scene.Version != version {
		return nil, fmt.Errorf("%w: have %d, got %d", ErrVersionConflict, scene.Version, version)
	}
	return scene, nil
}

func reindex(scene *Scene) {
	for i := range scene.Segments {
		scene.Segments[i].OrderIndex = i
	}
}
