package pattern

// State is the gesture lifecycle of a Tracker.
type State string

const (
	StateIdle      State = "idle"
	StateDragging  State = "dragging"
	StateCompleted State = "completed"
	StateRejected  State = "rejected"
)

// Tracker turns pointer events into a Sequence. It is owned by a single
// gesture source and is not safe for concurrent use.
type Tracker struct {
	grid       Grid
	state      State
	visited    Sequence
	pointer    *Point
	result     Sequence
	onComplete func(Sequence)
}

// NewTracker returns an idle tracker. onComplete fires once per accepted
// gesture and may be nil.
func NewTracker(grid Grid, onComplete func(Sequence)) *Tracker {
	return &Tracker{grid: grid, state: StateIdle, onComplete: onComplete}
}

func (t *Tracker) State() State { return t.state }

// Visited returns the nodes of the gesture in progress.
func (t *Tracker) Visited() Sequence { return t.visited.Clone() }

// Result returns the last accepted pattern, nil unless Completed.
func (t *Tracker) Result() Sequence { return t.result.Clone() }

// Down starts a new gesture, discarding any previous outcome.
func (t *Tracker) Down(p Point) {
	t.state = StateDragging
	t.visited = t.visited[:0]
	t.result = nil
	t.pointer = &p
	t.visit(p)
}

// Move extends the gesture with any unvisited node under p.
func (t *Tracker) Move(p Point) {
	if t.state != StateDragging {
		return
	}
	t.pointer = &p
	t.visit(p)
}

// Up ends the gesture. A sequence shorter than MinLength is rejected and
// cleared; otherwise the pattern is reported and returned.
func (t *Tracker) Up() (Sequence, bool) {
	if t.state != StateDragging {
		return nil, false
	}
	t.pointer = nil
	if len(t.visited) < MinLength {
		t.state = StateRejected
		t.visited = nil
		return nil, false
	}

	t.state = StateCompleted
	t.result = t.visited.Clone()
	if t.onComplete != nil {
		t.onComplete(t.result.Clone())
	}
	return t.result.Clone(), true
}

// Reset returns the tracker to Idle.
func (t *Tracker) Reset() {
	t.state = StateIdle
	t.visited = nil
	t.pointer = nil
	t.result = nil
}

// Frame renders the current state. The live segment is only drawn mid-gesture.
func (t *Tracker) Frame() Frame {
	if t.state == StateDragging {
		return Render(t.grid, t.visited, t.pointer)
	}
	return Render(t.grid, t.visited, nil)
}

func (t *Tracker) visit(p Point) {
	node, ok := t.grid.HitTest(p)
	if !ok || t.visited.Contains(node) {
		return
	}
	t.visited = append(t.visited, node)
}
