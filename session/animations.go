package session

import (
	"math"
	"sync"
	"time"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/types"
)

const (
	// defaultStableFor is how long the pixel-change percentage must stay at
	// or below the threshold before the screen counts as settled.
	defaultStableFor = 1000 * time.Millisecond

	defaultAnimationTimeout = 10 * time.Second
)

// WaitForAnimationsOptions tunes a WaitForAnimations call.
type WaitForAnimationsOptions struct {
	// Threshold is the maximum per-frame pixel-change percentage still
	// considered settled.
	Threshold float64

	// StableFor is how long the percentage must hold at or below the
	// threshold. Defaults to one second.
	StableFor time.Duration

	// Timeout bounds the whole wait.
	Timeout time.Duration
}

// pixelDetection owns the shared pixel-change-detection toggle. Detection
// stays enabled while any waiter is in flight and is disabled exactly when
// the last one departs.
type pixelDetection struct {
	ch    channel.Channel
	mu    sync.Mutex
	count int
}

func (p *pixelDetection) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count++
	if p.count == 1 {
		if err := p.ch.Send("enablePixelChangeDetection", nil); err != nil {
			p.count--
			return err
		}
	}
	return nil
}

func (p *pixelDetection) release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.count--
	if p.count == 0 {
		_ = p.ch.Send("disablePixelChangeDetection", nil)
	}
}

type pixelsChangedPayload struct {
	Percent float64 `json:"percent"`
}

// WaitForAnimations resolves once the remote's per-frame pixel-change
// percentage has stayed at or below the threshold continuously for StableFor.
// On timeout the error reports both the threshold and the lowest percentage
// actually observed.
func (s *Session) WaitForAnimations(opts WaitForAnimationsOptions) error {
	stableFor := opts.StableFor
	if stableFor == 0 {
		stableFor = defaultStableFor
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultAnimationTimeout
	}

	if err := s.anims.acquire(); err != nil {
		return err
	}
	defer s.anims.release()

	samples := make(chan float64, 16)
	sub := s.ch.On("pixelsChanged", func(msg channel.Message) {
		var payload pixelsChangedPayload
		if err := unmarshalValue(msg.Value, &payload); err != nil {
			return
		}
		select {
		case samples <- payload.Percent:
		default:
		}
	})
	defer s.ch.Off(sub)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	// stability fires once the current quiet streak has lasted StableFor;
	// it is rearmed on the first quiet sample and disarmed by a loud one.
	stability := time.NewTimer(stableFor)
	stability.Stop()
	defer stability.Stop()

	lowest := math.Inf(1)
	streak := false

	for {
		select {
		case percent := <-samples:
			if percent < lowest {
				lowest = percent
			}
			if percent <= opts.Threshold {
				if !streak {
					streak = true
					stability.Reset(stableFor)
				}
			} else if streak {
				streak = false
				if !stability.Stop() {
					<-stability.C
				}
			}

		case <-stability.C:
			return nil

		case <-s.disconnectCh:
			return types.NewDisconnectedError("session disconnected while waiting for animations")

		case <-deadline.C:
			if math.IsInf(lowest, 1) {
				return types.NewTimeoutError(
					"timed out after %v waiting for animations to settle below %v%% (no pixel change reports received)",
					timeout, opts.Threshold)
			}
			return types.NewTimeoutError(
				"timed out after %v waiting for animations to settle below %v%% (lowest observed: %v%%)",
				timeout, opts.Threshold, lowest)
		}
	}
}
