package timeline

import (
	"errors"
	"fmt"
)

const (
	SourceUpload    = "upload"
	SourceCandidate = "candidate"
	SourceSegment   = "segment"
)

var ErrInvalidTrim = errors.New("invalid trim window")

// Clip is one member of a composed sequence. Times are seconds.
// TrimStart/TrimEnd are cut from the head and tail of the source media;
// the playable window is [TrimStart, FullDuration-TrimEnd).
type Clip struct {
	ID             string  `json:"id"`
	Label          string  `json:"label,omitempty"`
	SourceKind     string  `json:"source_kind,omitempty"`
	MediaRef       string  `json:"media_ref"`
	AudioRef       string  `json:"audio_ref,omitempty"`
	ThumbnailRef   string  `json:"thumbnail_ref,omitempty"`
	FullDuration   float64 `json:"full_duration"`
	TrimStart      float64 `json:"trim_start"`
	TrimEnd        float64 `json:"trim_end"`
	AudioTrimStart float64 `json:"audio_trim_start,omitempty"`
	AudioTrimEnd   float64 `json:"audio_trim_end,omitempty"`
	AudioGain      float64 `json:"audio_gain,omitempty"`
	AVLinked       bool    `json:"av_linked,omitempty"`
}

func (c Clip) EffectiveDuration() float64 {
	d := c.FullDuration - c.TrimStart - c.TrimEnd
	if d < 0 {
		return 0
	}
	return d
}

// Playable reports whether the clip contributes time to the sequence.
// Over-trimmed clips are skipped everywhere rather than treated as fatal.
func (c Clip) Playable() bool {
	return c.EffectiveDuration() > 0
}

func (c Clip) Validate() error {
	if c.TrimStart < 0 {
		return fmt.Errorf("%w: trim_start %.3f is negative", ErrInvalidTrim, c.TrimStart)
	}
	if c.TrimEnd < 0 {
		return fmt.Errorf("%w: trim_end %.3f is negative", ErrInvalidTrim, c.TrimEnd)
	}
	if c.TrimStart+c.TrimEnd >= c.FullDuration {
		return fmt.Errorf("%w: trims %.3f+%.3f consume the full duration %.3f", ErrInvalidTrim, c.TrimStart, c.TrimEnd, c.FullDuration)
	}
	return nil
}

// SetTrim applies a new trim window. Linked audio mirrors the video window.
func (c *Clip) SetTrim(start, end float64) {
	c.TrimStart = start
	c.TrimEnd = end
	if c.AVLinked {
		c.AudioTrimStart = start
		c.AudioTrimEnd = end
	}
}

// Sequence is an ordered set of clips played back to back. Global time
// runs over the effective (trimmed) durations of its playable members;
// nothing about position is stored, it is always derived.
type Sequence []Clip

func (s Sequence) TotalDuration() float64 {
	total := 0.0
	for _, c := range s {
		total += c.EffectiveDuration()
	}
	return total
}

func (s Sequence) IndexOf(clipID string) int {
	for i, c := range s {
		if c.ID == clipID {
			return i
		}
	}
	return -1
}

func (s Sequence) Find(clipID string) (Clip, bool) {
	i := s.IndexOf(clipID)
	if i < 0 {
		return Clip{}, false
	}
	return s[i], true
}

// OffsetOf returns the global time at which a member starts.
func (s Sequence) OffsetOf(clipID string) (float64, bool) {
	acc := 0.0
	for _, c := range s {
		if c.ID == clipID {
			return acc, true
		}
		acc += c.EffectiveDuration()
	}
	return 0, false
}

// Position locates a global time inside one member. LocalTime is in the
// member's own (untrimmed) media timebase, so it starts at TrimStart.
type Position struct {
	ClipID    string  `json:"clip_id"`
	Index     int     `json:"index"`
	LocalTime float64 `json:"local_time"`
	AtEnd     bool    `json:"at_end,omitempty"`
}

// Resolve walks the sequence and returns the member under globalTime:
// the first playable member whose cumulative upper bound exceeds it.
// Times at or past the total duration clamp to the end of the last
// playable member with AtEnd set. ok is false only when nothing is
// playable.
func (s Sequence) Resolve(globalTime float64) (Position, bool) {
	if globalTime < 0 {
		globalTime = 0
	}
	acc := 0.0
	last := -1
	for i, c := range s {
		eff := c.EffectiveDuration()
		if eff <= 0 {
			continue
		}
		last = i
		if globalTime < acc+eff {
			return Position{ClipID: c.ID, Index: i, LocalTime: globalTime - acc + c.TrimStart}, true
		}
		acc += eff
	}
	if last < 0 {
		return Position{}, false
	}
	c := s[last]
	return Position{
		ClipID:    c.ID,
		Index:     last,
		LocalTime: c.TrimStart + c.EffectiveDuration(),
		AtEnd:     true,
	}, true
}

// GlobalTimeOf inverts Resolve for one member: the global time that
// corresponds to localTime inside clipID.
func (s Sequence) GlobalTimeOf(clipID string, localTime float64) (float64, bool) {
	acc := 0.0
	for _, c := range s {
		if c.ID == clipID {
			return acc + localTime - c.TrimStart, true
		}
		acc += c.EffectiveDuration()
	}
	return 0, false
}

// Clone returns an independent copy safe to hand across goroutines or
// into the recovery store.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
