package session

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mobile-next/streamkit/channel"
	"github.com/mobile-next/streamkit/mapping"
	"github.com/mobile-next/streamkit/types"
	"github.com/mobile-next/streamkit/utils"
)

const (
	// attemptCap is the remote protocol's limit on a single playback attempt.
	attemptCap = 10 * time.Second

	// responseSlack extends the local hard deadline past the attempt
	// timeout, so a slow remote timeout can still be told apart from a
	// remote that never responded.
	responseSlack = 10 * time.Second

	// DefaultPlayTimeout is the total budget when the caller does not set
	// one.
	DefaultPlayTimeout = 10 * time.Second

	// recentRequestIDs bounds the cache used to recognize late responses
	// for superseded attempts.
	recentRequestIDs = 128
)

// PlayOptions tunes a single PlayAction call.
type PlayOptions struct {
	// Timeout is the total time budget. Budgets beyond the remote's 10s
	// per-attempt cap are spent as repeated attempts with fresh request
	// ids.
	Timeout time.Duration
}

type dispatcher struct {
	ch        channel.Channel
	mapper    func() *mapping.Mapper
	recording func() bool
	rawDebug  bool
	recent    *lru.Cache[string, time.Time]
}

func newDispatcher(ch channel.Channel, mapper func() *mapping.Mapper, recording func() bool, rawDebug bool) *dispatcher {
	recent, _ := lru.New[string, time.Time](recentRequestIDs)
	return &dispatcher{
		ch:        ch,
		mapper:    mapper,
		recording: recording,
		rawDebug:  rawDebug,
		recent:    recent,
	}
}

// playActionPayload is the outbound playAction message. The options timeout
// travels in seconds, capped at the remote's 10s attempt limit.
type playActionPayload struct {
	ID      string             `json:"id"`
	Action  mapping.WireAction `json:"action"`
	Options playActionOptions  `json:"options"`
}

type playActionOptions struct {
	Timeout float64 `json:"timeout"`
}

// playbackID carries the request correlation id of a playback response.
type playbackID struct {
	ID string `json:"id"`
}

type playbackSuccess struct {
	Playback    playbackID            `json:"playback"`
	Action      *mapping.WireAction   `json:"action,omitempty"`
	Element     *mapping.WireElement  `json:"element,omitempty"`
	Elements    []mapping.WireElement `json:"elements,omitempty"`
	Coordinates *types.Coordinate     `json:"coordinates,omitempty"`
}

type playbackFailure struct {
	Playback playbackID            `json:"playback"`
	ErrorID  string                `json:"errorId"`
	Message  string                `json:"message,omitempty"`
	Elements []mapping.WireElement `json:"elements,omitempty"`
}

// playAction drives one action through the request/response/retry cycle. The
// retry policy is an explicit loop carrying the remaining budget: recoverable
// remote errors are retried until the budget is exhausted, terminal errors
// and local timeouts surface immediately.
func (d *dispatcher) playAction(action types.Action, opts PlayOptions, operation string) (*types.PlayActionResult, error) {
	if !d.recording() {
		return nil, types.NewRecorderRequiredError(operation)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultPlayTimeout
	}
	if timeout < 0 {
		return nil, types.NewOperationalError("timeout must be a non-negative number of milliseconds, got %v", opts.Timeout)
	}

	wire, err := d.mapper().MapAction(action)
	if err != nil && !d.rawDebug {
		return nil, err
	}
	if d.rawDebug && err != nil {
		// raw debug sessions bypass mapping validation
		wire = mapping.WireAction{Type: string(action.Type)}
	}

	remaining := timeout
	for {
		attempt := remaining
		if attempt > attemptCap {
			attempt = attemptCap
		}

		result, err := d.attempt(action, wire, attempt)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return nil, err
		}

		remaining -= attemptCap
		if remaining <= 0 {
			return nil, err
		}
		utils.Verbose("retrying %s action, %v of budget left: %v", action.Type, remaining, err)
	}
}

// attempt runs one bounded round trip, correlated by a fresh request id.
// Responses for other ids are ignored; each attempt is an independent
// request as far as the remote is concerned.
func (d *dispatcher) attempt(action types.Action, wire mapping.WireAction, timeout time.Duration) (*types.PlayActionResult, error) {
	id := uuid.NewString()
	d.recent.Add(id, time.Now())

	successCh := make(chan playbackSuccess, 1)
	failureCh := make(chan playbackFailure, 1)

	subOK := d.ch.On("playbackFoundAndSent", func(msg channel.Message) {
		var p playbackSuccess
		if err := unmarshalValue(msg.Value, &p); err != nil {
			return
		}
		if p.Playback.ID != id {
			d.noteStale(p.Playback.ID)
			return
		}
		select {
		case successCh <- p:
		default:
		}
	})
	defer d.ch.Off(subOK)

	subErr := d.ch.On("playbackError", func(msg channel.Message) {
		var p playbackFailure
		if err := unmarshalValue(msg.Value, &p); err != nil {
			return
		}
		if p.Playback.ID != id {
			d.noteStale(p.Playback.ID)
			return
		}
		select {
		case failureCh <- p:
		default:
		}
	})
	defer d.ch.Off(subErr)

	disconnectCh := make(chan struct{}, 1)
	subDisc := d.ch.On(channel.Disconnect, func(msg channel.Message) {
		select {
		case disconnectCh <- struct{}{}:
		default:
		}
	})
	defer d.ch.Off(subDisc)

	payload := playActionPayload{
		ID:      id,
		Action:  wire,
		Options: playActionOptions{Timeout: timeout.Seconds()},
	}
	if err := d.ch.Send("playAction", payload); err != nil {
		return nil, types.NewDisconnectedError("failed to send action: %v", err)
	}

	timer := time.NewTimer(timeout + responseSlack)
	defer timer.Stop()

	select {
	case p := <-successCh:
		return d.buildResult(p)

	case p := <-failureCh:
		return nil, d.classify(action, p)

	case <-disconnectCh:
		return nil, types.NewDisconnectedError(
			"channel disconnected while waiting for %s action playback", action.Type)

	case <-timer.C:
		return nil, types.NewActionTimeoutError(&action,
			"timed out after %v waiting for %s action playback", timeout+responseSlack, action.Type)
	}
}

func (d *dispatcher) buildResult(p playbackSuccess) (*types.PlayActionResult, error) {
	result := &types.PlayActionResult{ID: p.Playback.ID, Coordinates: p.Coordinates}
	m := d.mapper()

	if p.Action != nil {
		action, err := m.UnmapAction(*p.Action)
		if err != nil {
			return nil, err
		}
		result.Action = &action
	}
	if p.Element != nil {
		el := m.UnmapElement(*p.Element)
		result.Element = &el
	}
	for _, wireEl := range p.Elements {
		result.Elements = append(result.Elements, m.UnmapElement(wireEl))
	}
	return result, nil
}

// classify translates a remote playback error into the typed taxonomy.
func (d *dispatcher) classify(action types.Action, p playbackFailure) error {
	switch p.ErrorID {
	case "internalError":
		msg := p.Message
		if msg == "" {
			msg = "internal error while playing action"
		}
		return types.NewActionInternalError(&action, msg)

	case "notFound":
		return types.NewActionElementNotFoundError(&action)

	case "ambiguousMatch":
		m := d.mapper()
		elements := make([]types.Element, 0, len(p.Elements))
		for _, wireEl := range p.Elements {
			elements = append(elements, m.UnmapElement(wireEl))
		}
		return types.NewActionAmbiguousElementError(&action, elements)

	case "invalidArgument":
		if strings.Contains(p.Message, "localPosition") {
			return types.NewActionInvalidArgumentError(&action,
				"local position is outside the element bounds")
		}
		msg := p.Message
		if msg == "" {
			msg = "invalid action argument"
		}
		return types.NewActionInvalidArgumentError(&action, msg)

	default:
		msg := p.Message
		if msg == "" {
			msg = p.ErrorID
		}
		return types.NewActionError(&action, "action playback failed: %s", msg)
	}
}

// retryable reports whether the dispatcher may spend remaining budget on
// another attempt. Local timeouts, remote internal errors and argument
// rejections are terminal.
func retryable(err error) bool {
	var (
		timeoutErr  *types.ActionTimeoutError
		internalErr *types.ActionInternalError
		argErr      *types.ActionInvalidArgumentError
	)
	if errors.As(err, &timeoutErr) || errors.As(err, &internalErr) || errors.As(err, &argErr) {
		return false
	}

	var (
		notFoundErr  *types.ActionElementNotFoundError
		ambiguousErr *types.ActionAmbiguousElementError
		actionErr    *types.ActionError
	)
	return errors.As(err, &notFoundErr) || errors.As(err, &ambiguousErr) || errors.As(err, &actionErr)
}

// noteStale logs responses that arrive after their attempt was superseded.
// Ids absent from the recent cache did not originate here at all.
func (d *dispatcher) noteStale(id string) {
	if _, ok := d.recent.Get(id); ok {
		utils.Verbose("ignoring late playback response for superseded request %s", id)
	} else {
		utils.Verbose("ignoring playback response for unknown request %s", id)
	}
}
