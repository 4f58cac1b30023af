package pattern

// NoNode marks the open end of the in-progress segment.
const NoNode = -1

// Segment connects two points; ToNode is NoNode for the live segment.
type Segment struct {
	FromNode int   `json:"from_node"`
	ToNode   int   `json:"to_node"`
	From     Point `json:"from"`
	To       Point `json:"to"`
}

// NodeView is one drawable node.
type NodeView struct {
	Index   int   `json:"index"`
	Center  Point `json:"center"`
	Visited bool  `json:"visited"`
}

// Frame is everything needed to draw the canvas once.
type Frame struct {
	Nodes    []NodeView `json:"nodes"`
	Segments []Segment  `json:"segments"`
	Live     *Segment   `json:"live,omitempty"`
}

// VisitedCount is the number of highlighted nodes.
func (f Frame) VisitedCount() int {
	n := 0
	for _, node := range f.Nodes {
		if node.Visited {
			n++
		}
	}
	return n
}

// Render draws the visited path. pointer is the live finger position and is
// only passed while a gesture is in progress.
func Render(g Grid, visited Sequence, pointer *Point) Frame {
	frame := Frame{
		Nodes:    make([]NodeView, NodeCount),
		Segments: make([]Segment, 0, max(len(visited)-1, 0)),
	}
	for i := range frame.Nodes {
		frame.Nodes[i] = NodeView{Index: i, Center: g.Center(i), Visited: visited.Contains(i)}
	}
	for i := 1; i < len(visited); i++ {
		from, to := visited[i-1], visited[i]
		frame.Segments = append(frame.Segments, Segment{
			FromNode: from,
			ToNode:   to,
			From:     g.Center(from),
			To:       g.Center(to),
		})
	}
	if pointer != nil && len(visited) > 0 {
		last := visited[len(visited)-1]
		frame.Live = &Segment{FromNode: last, ToNode: NoNode, From: g.Center(last), To: *pointer}
	}
	return frame
}
