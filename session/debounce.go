package session

import (
	"context"
	"time"
)

// notifier coalesces bursts of raw mutation signals into change
// notifications. A quiet window must pass after the last signal before fire
// runs; a full buffer fires immediately so a page that never goes quiet
// still refreshes.
type notifier struct {
	window    time.Duration
	maxBuffer int
	ticks     chan struct{}
	fire      func()
}

func newNotifier(window time.Duration, maxBuffer int, fire func()) *notifier {
	if window <= 0 {
		window = 250 * time.Millisecond
	}
	if maxBuffer <= 0 {
		maxBuffer = 1000
	}
	return &notifier{
		window:    window,
		maxBuffer: maxBuffer,
		ticks:     make(chan struct{}, 1024),
		fire:      fire,
	}
}

// tick records one raw signal. Non-blocking: a full channel drops the tick,
// which is safe because notifications carry no payload — one queued tick is
// enough to schedule a flush.
func (n *notifier) tick() {
	select {
	case n.ticks <- struct{}{}:
	default:
	}
}

// run loops until ctx is cancelled.
func (n *notifier) run(ctx context.Context) {
	var timer *time.Timer
	var timerCh <-chan time.Time
	pending := 0

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-n.ticks:
			pending++
			if pending >= n.maxBuffer {
				if timer != nil {
					timer.Stop()
					timerCh = nil
				}
				pending = 0
				n.fire()
				continue
			}
			// (Re)start the quiet window.
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(n.window)
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			if pending > 0 {
				pending = 0
				n.fire()
			}
		}
	}
}
