package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

var ErrClipNotFound = errors.New("clip not found")

// ClipPatch is a partial update to one ad-hoc clip. Nil fields are left
// untouched.
type ClipPatch struct {
	Label          *string  `json:"label,omitempty"`
	TrimStart      *float64 `json:"trim_start,omitempty"`
	TrimEnd        *float64 `json:"trim_end,omitempty"`
	AudioTrimStart *float64 `json:"audio_trim_start,omitempty"`
	AudioTrimEnd   *float64 `json:"audio_trim_end,omitempty"`
	AudioGain      *float64 `json:"audio_gain,omitempty"`
	AVLinked       *bool    `json:"av_linked,omitempty"`
}

// AdhocProvider owns a locally assembled clip list: uploads and accepted
// candidates sequenced without any backend scene structure. Mutations are
// synchronous, bump the revision, and notify the manager so playback and
// autosave stay current.
type AdhocProvider struct {
	mu       sync.Mutex
	clips    timeline.Sequence
	revision int64
	notify   func()
}

func newAdhocProvider(notify func()) *AdhocProvider {
	return &AdhocProvider{notify: notify}
}

// Append adds a fully specified clip. A missing id is assigned.
func (p *AdhocProvider) Append(clip timeline.Clip) (timeline.Clip, error) {
	if err := clip.Validate(); err != nil {
		return timeline.Clip{}, err
	}
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}

	p.mu.Lock()
	p.clips = append(p.clips, clip)
	p.revision++
	p.mu.Unlock()
	p.notify()
	return clip, nil
}

// AppendFromCandidate turns an accepted generation candidate into a clip.
func (p *AdhocProvider) AppendFromCandidate(c studio.Candidate) (timeline.Clip, error) {
	return p.Append(timeline.Clip{
		Label:        c.Label,
		SourceKind:   timeline.SourceCandidate,
		MediaRef:     c.MediaRef,
		ThumbnailRef: c.ThumbnailRef,
		FullDuration: c.Duration,
		AVLinked:     true,
	})
}

// AppendFromUpload turns an uploaded file into a clip. duration is the
// probed media duration in seconds.
func (p *AdhocProvider) AppendFromUpload(ref *studio.MediaRef, label string, duration float64) (timeline.Clip, error) {
	if ref.Duration > 0 {
		duration = ref.Duration
	}
	return p.Append(timeline.Clip{
		Label:        label,
		SourceKind:   timeline.SourceUpload,
		MediaRef:     ref.Ref,
		AudioRef:     ref.AudioRef,
		FullDuration: duration,
		AVLinked:     true,
	})
}

func (p *AdhocProvider) Remove(clipID string) error {
	p.mu.Lock()
	index := p.clips.IndexOf(clipID)
	if index < 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}
	p.clips = append(p.clips[:index], p.clips[index+1:]...)
	p.revision++
	p.mu.Unlock()
	p.notify()
	return nil
}

// Patch applies a partial update. Trim changes are validated against the
// clip's full duration before anything is committed, and AV-linked clips
// mirror video trims onto the audio window.
func (p *AdhocProvider) Patch(clipID string, patch ClipPatch) (timeline.Clip, error) {
	p.mu.Lock()
	index := p.clips.IndexOf(clipID)
	if index < 0 {
		p.mu.Unlock()
		return timeline.Clip{}, fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}

	updated := p.clips[index]
	if patch.Label != nil {
		updated.Label = *patch.Label
	}
	if patch.AVLinked != nil {
		updated.AVLinked = *patch.AVLinked
	}
	if patch.AudioGain != nil {
		updated.AudioGain = *patch.AudioGain
	}

	if patch.TrimStart != nil || patch.TrimEnd != nil {
		start, end := updated.TrimStart, updated.TrimEnd
		if patch.TrimStart != nil {
			start = *patch.TrimStart
		}
		if patch.TrimEnd != nil {
			end = *patch.TrimEnd
		}
		candidate := updated
		candidate.SetTrim(start, end)
		if err := candidate.Validate(); err != nil {
			p.mu.Unlock()
			return timeline.Clip{}, err
		}
		updated = candidate
	}

	if patch.AudioTrimStart != nil {
		updated.AudioTrimStart = *patch.AudioTrimStart
	}
	if patch.AudioTrimEnd != nil {
		updated.AudioTrimEnd = *patch.AudioTrimEnd
	}

	p.clips[index] = updated
	p.revision++
	p.mu.Unlock()
	p.notify()
	return updated, nil
}

// Replace swaps in a whole clip list. This is the session-restore path.
func (p *AdhocProvider) Replace(clips timeline.Sequence) {
	p.mu.Lock()
	p.clips = clips.Clone()
	p.revision++
	p.mu.Unlock()
	p.notify()
}

// Clips returns an independent copy of the current list.
func (p *AdhocProvider) Clips() timeline.Sequence {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clips.Clone()
}

// Revision increments on every mutation; the autosave scheduler compares
// it against the last written snapshot.
func (p *AdhocProvider) Revision() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}
