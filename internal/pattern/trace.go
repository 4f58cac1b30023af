package pattern

import "fmt"

// EventType is a recorded pointer action.
type EventType string

const (
	EventDown EventType = "down"
	EventMove EventType = "move"
	EventUp   EventType = "up"
)

// Event is one recorded pointer sample.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

// TraceResult is the outcome of replaying recorded events through a Tracker.
type TraceResult struct {
	State    State    `json:"state"`
	Sequence Sequence `json:"sequence"`
	Encoded  string   `json:"encoded,omitempty"`
	Frame    Frame    `json:"frame"`
}

// Trace feeds events through a fresh tracker. Events after the first up are
// treated as a new gesture, matching a live canvas.
func Trace(g Grid, events []Event) (TraceResult, error) {
	tracker := NewTracker(g, nil)
	for i, ev := range events {
		p := Point{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case EventDown:
			tracker.Down(p)
		case EventMove:
			tracker.Move(p)
		case EventUp:
			tracker.Up()
		default:
			return TraceResult{}, fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}

	res := TraceResult{State: tracker.State(), Frame: tracker.Frame()}
	if seq := tracker.Result(); seq != nil {
		res.Sequence = seq
		res.Encoded = seq.Encode()
	} else {
		res.Sequence = tracker.Visited()
	}
	return res, nil
}
