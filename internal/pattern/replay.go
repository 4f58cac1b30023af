package pattern

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// DefaultStepDelay is the pause before each node is revealed.
const DefaultStepDelay = 300 * time.Millisecond

// ErrReplayConsumed is returned when Play is called twice on one Replayer.
var ErrReplayConsumed = errors.New("pattern replay already played")

// TimedFrame is a replay frame with its offset from the start of playback.
type TimedFrame struct {
	Offset time.Duration `json:"-"`
	AtMS   int64         `json:"at_ms"`
	Frame  Frame         `json:"frame"`
}

// Timeline computes every replay frame up front. Frame k reveals node k and
// the segment into it, so N nodes yield N frames and N-1 segments.
func Timeline(g Grid, seq Sequence, step time.Duration) []TimedFrame {
	frames := make([]TimedFrame, 0, len(seq))
	for k := range seq {
		offset := time.Duration(k+1) * step
		frames = append(frames, TimedFrame{
			Offset: offset,
			AtMS:   offset.Milliseconds(),
			Frame:  Render(g, seq[:k+1], nil),
		})
	}
	return frames
}

// ReplayOption customizes a Replayer.
type ReplayOption func(*Replayer)

// WithStepDelay overrides DefaultStepDelay.
func WithStepDelay(d time.Duration) ReplayOption {
	return func(r *Replayer) {
		if d > 0 {
			r.step = d
		}
	}
}

// WithTimer swaps the timer source, mainly for tests.
func WithTimer(after func(time.Duration) <-chan time.Time) ReplayOption {
	return func(r *Replayer) {
		if after != nil {
			r.after = after
		}
	}
}

// Replayer animates one stored sequence exactly once.
type Replayer struct {
	grid   Grid
	seq    Sequence
	step   time.Duration
	after  func(time.Duration) <-chan time.Time
	played atomic.Bool
}

// NewReplayer validates seq. An empty sequence is allowed and plays nothing.
func NewReplayer(g Grid, seq Sequence, opts ...ReplayOption) (*Replayer, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	r := &Replayer{grid: g, seq: seq.Clone(), step: DefaultStepDelay, after: time.After}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Play streams frames on the step delay and closes the channel after the last
// node or when ctx is done.
func (r *Replayer) Play(ctx context.Context) (<-chan Frame, error) {
	if !r.played.CompareAndSwap(false, true) {
		return nil, ErrReplayConsumed
	}

	out := make(chan Frame)
	go func() {
		defer close(out)
		for k := range r.seq {
			select {
			case <-ctx.Done():
				return
			case <-r.after(r.step):
			}
			frame := Render(r.grid, r.seq[:k+1], nil)
			select {
			case <-ctx.Done():
				return
			case out <- frame:
			}
		}
	}()
	return out, nil
}
