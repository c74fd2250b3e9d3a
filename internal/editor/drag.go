package editor

import "errors"

const (
	DragIdle     = "idle"
	DragDragging = "dragging"

	DropOutcomeValid   = "dropped_valid"
	DropOutcomeInvalid = "dropped_invalid"
)

var ErrDragTransition = errors.New("invalid drag transition")

// DragPayload identifies what is being dragged: a candidate, an upload,
// or any other media the surface can hand over.
type DragPayload struct {
	SourceID string `json:"source_id"`
	MediaRef string `json:"media_ref"`
	Kind     string `json:"kind,omitempty"`
	Label    string `json:"label,omitempty"`
}

// DropTarget is an insertion point inside a scene.
type DropTarget struct {
	SceneID string `json:"scene_id"`
	Index   int    `json:"index"`
}

// DragStatus is the externally visible drag state.
type DragStatus struct {
	State       string       `json:"state"`
	Payload     *DragPayload `json:"payload,omitempty"`
	Target      *DropTarget  `json:"target,omitempty"`
	LastOutcome string       `json:"last_outcome,omitempty"`
}

// dragFSM is the drag interaction state machine: idle → dragging →
// (dropped valid | dropped invalid) → idle. The dropped states are
// transition outcomes, recorded in lastOutcome; the machine itself always
// settles back to idle. Guarded by the manager's mutex.
type dragFSM struct {
	state       string
	payload     DragPayload
	target      *DropTarget
	lastOutcome string
}

func newDragFSM() dragFSM {
	return dragFSM{state: DragIdle}
}

func (d *dragFSM) start(payload DragPayload) error {
	if d.state != DragIdle {
		return ErrDragTransition
	}
	d.state = DragDragging
	d.payload = payload
	d.target = nil
	d.lastOutcome = ""
	return nil
}

func (d *dragFSM) hover(target *DropTarget) error {
	if d.state != DragDragging {
		return ErrDragTransition
	}
	d.target = target
	return nil
}

// settle finishes the drag with an outcome and returns to idle.
func (d *dragFSM) settle(outcome string) {
	d.state = DragIdle
	d.payload = DragPayload{}
	d.target = nil
	d.lastOutcome = outcome
}

func (d *dragFSM) cancel() {
	if d.state == DragIdle {
		return
	}
	d.settle(DropOutcomeInvalid)
}

func (d *dragFSM) status() DragStatus {
	status := DragStatus{
		State:       d.state,
		LastOutcome: d.lastOutcome,
	}
	if d.state == DragDragging {
		payload := d.payload
		status.Payload = &payload
		if d.target != nil {
			target := *d.target
			status.Target = &target
		}
	}
	return status
}
