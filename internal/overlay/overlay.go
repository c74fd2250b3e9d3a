package overlay

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

const (
	KindText    = "text"
	KindSticker = "sticker"
	KindAudio   = "audio"
)

var (
	ErrNotFound    = errors.New("overlay element not found")
	ErrInvalidSpan = errors.New("invalid overlay time span")
)

// Element is decoration anchored to global timeline time, independent of
// clip boundaries. Spans may overlap freely. Payload carries kind-specific
// presentation data the engine does not interpret.
type Element struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	AssetRef  string            `json:"asset_ref,omitempty"`
	StartTime float64           `json:"start_time"`
	EndTime   float64           `json:"end_time"`
	Payload   map[string]string `json:"payload,omitempty"`
}

func (e Element) activeAt(t float64) bool {
	return e.StartTime <= t && t < e.EndTime
}

// Layer is the flat set of overlay elements for the open project.
// Elements keep their global anchors across sequence edits; re-anchoring
// to shifted clips is the caller's problem, not the layer's.
type Layer struct {
	mu       sync.Mutex
	elements map[string]Element
}

func NewLayer() *Layer {
	return &Layer{elements: make(map[string]Element)}
}

func (l *Layer) Add(kind, assetRef string, start, end float64, payload map[string]string) (Element, error) {
	if err := validateSpan(start, end); err != nil {
		return Element{}, err
	}

	el := Element{
		ID:        uuid.NewString(),
		Kind:      kind,
		AssetRef:  assetRef,
		StartTime: start,
		EndTime:   end,
		Payload:   payload,
	}

	l.mu.Lock()
	l.elements[el.ID] = el
	l.mu.Unlock()
	return el, nil
}

func (l *Layer) Remove(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.elements[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(l.elements, id)
	return nil
}

// Reposition moves an element's span without touching its content.
func (l *Layer) Reposition(id string, start, end float64) (Element, error) {
	if err := validateSpan(start, end); err != nil {
		return Element{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.elements[id]
	if !ok {
		return Element{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	el.StartTime = start
	el.EndTime = end
	l.elements[id] = el
	return el, nil
}

// ActiveAt returns the elements visible at global time t, half-open on the
// end so back-to-back spans never double-fire.
func (l *Layer) ActiveAt(t float64) []Element {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Element
	for _, el := range l.elements {
		if el.activeAt(t) {
			out = append(out, el)
		}
	}
	sortElements(out)
	return out
}

func (l *Layer) List() []Element {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Element, 0, len(l.elements))
	for _, el := range l.elements {
		out = append(out, el)
	}
	sortElements(out)
	return out
}

func (l *Layer) Get(id string) (Element, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.elements[id]
	return el, ok
}

func validateSpan(start, end float64) error {
	if start < 0 {
		return fmt.Errorf("%w: start %.3f is negative", ErrInvalidSpan, start)
	}
	if end <= start {
		return fmt.Errorf("%w: end %.3f is not after start %.3f", ErrInvalidSpan, end, start)
	}
	return nil
}

func sortElements(elements []Element) {
	sort.Slice(elements, func(i, j int) bool {
		if elements[i].StartTime != elements[j].StartTime {
			return elements[i].StartTime < elements[j].StartTime
		}
		return elements[i].ID < elements[j].ID
	})
}
