// Claire Driver
// Copyright (c) 2026 The Claire Driver Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Claire Driver.
//
// Claire Driver is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Claire Driver is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Claire Driver.  If not, see <http://www.gnu.org/licenses/>.

package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Session is a live connection to one rig. All exported methods are safe for
// concurrent use; at most one command is outstanding on the wire at any time.
type Session struct {
	transport Transport
	clock     clockwork.Clock
	lines     *LineLog
	liveness  *Liveness
	cycle     *syncutil.Gate
	cancel    context.CancelFunc
	group     *errgroup.Group
	tasksCtx  context.Context
	id        string
	greeting  protocol.Greeting
	opts      Options
	cache     stateCache
	closeErr  error
	closeOnce sync.Once
	busy      atomic.Bool
	closed    atomic.Bool
}

type requestStateArgs struct {
	Tube int `validate:"gte=0,lte=2"`
}

type setLevelArgs struct {
	Tube  int     `validate:"tube"`
	Level float64 `validate:"gte=0,lte=900"`
}

type setRateArgs struct {
	Tube int `validate:"tube"`
	Rate int `validate:"gte=0,lte=100"`
}

func newSession(t Transport, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		transport: t,
		clock:     opts.Clock,
		lines:     NewLineLog(),
		liveness:  NewLiveness(opts.Clock),
		cycle:     syncutil.NewGate(),
		id:        uuid.New().String(),
		opts:      opts,
	}
	// busy until the firmware announces it is ready
	s.busy.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group, s.tasksCtx = errgroup.WithContext(ctx)
	return s
}

// Open starts a session on t: it waits for the firmware to become ready,
// checks its version and polls the initial state. On error the transport is
// closed.
func Open(ctx context.Context, t Transport, opts Options) (*Session, error) {
	s := newSession(t, opts)

	s.group.Go(func() error {
		s.readLoop(s.tasksCtx)
		return nil
	})

	log.Info().Str("session", s.id).Msg("device connected, waiting for initialisation")

	if err := s.handshake(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Info().
		Str("session", s.id).
		Str("version", s.greeting.Version).
		Msg("device initialised, getting initial state")

	if _, err := s.RequestState(ctx, protocol.TubeAll, false); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("initial state poll failed: %w", err)
	}

	if !s.opts.DisableWatchdog {
		s.group.Go(func() error {
			s.watchdogLoop(s.tasksCtx)
			return nil
		})
	}

	s.emit(Event{Method: EventSessionOpened, Message: s.greeting.Version})
	return s, nil
}

// Close stops the reader and watchdog, waits for both and closes the
// transport. Requests still in flight fail with ErrSessionClosed or time out.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		_ = s.group.Wait()

		if err := s.transport.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close transport: %w", err)
		}

		s.emit(Event{Method: EventSessionClosed})
		log.Info().Str("session", s.id).Msg("device session closed")
	})
	return s.closeErr
}

func (s *Session) ID() string {
	return s.id
}

// Greeting is the firmware banner seen during the handshake.
func (s *Session) Greeting() protocol.Greeting {
	return s.greeting
}

// IsAlive reports whether the device printed anything recently.
func (s *Session) IsAlive() bool {
	return s.liveness.Alive(s.opts.CommunicationTimeout)
}

// IsBusy reports whether a command is awaiting the ready sentinel.
func (s *Session) IsBusy() bool {
	return s.busy.Load()
}

// Lines returns the received lines from index from onwards.
func (s *Session) Lines(from int) []string {
	return s.lines.Since(from)
}

// CachedState returns the last polled state without contacting the device.
func (s *Session) CachedState() (DeviceState, bool) {
	return s.cache.Snapshot()
}

// WaitUntilIdle blocks until the device is not busy, ctx is done or the
// communication timeout passes.
func (s *Session) WaitUntilIdle(ctx context.Context) error {
	return s.waitIdle(ctx, s.opts.CommunicationTimeout)
}

func (s *Session) waitIdle(ctx context.Context, timeout time.Duration) error {
	if !s.busy.Load() {
		return nil
	}

	deadline := s.clock.Now().Add(timeout)
	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for idle device: %w", ctx.Err())
		case <-ticker.Chan():
		}

		if !s.busy.Load() {
			return nil
		}
		if s.closed.Load() {
			return ErrSessionClosed
		}
		if !s.clock.Now().Before(deadline) {
			s.opts.Metrics.timeout()
			return fmt.Errorf("%w: device still busy after %s", ErrCommunicationTimeout, timeout)
		}
	}
}

// SendCommand writes cmd once the device is idle. Concurrent callers queue on
// the request cycle.
func (s *Session) SendCommand(ctx context.Context, cmd protocol.Command) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if err := s.cycle.Acquire(ctx); err != nil {
		return err
	}
	defer s.cycle.Release()

	if err := s.waitIdle(ctx, s.opts.CommunicationTimeout); err != nil {
		return err
	}
	return s.write(cmd)
}

// TrySendCommand writes cmd only if no request is outstanding, otherwise it
// returns ErrDeviceBusy.
func (s *Session) TrySendCommand(cmd protocol.Command) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.cycle.TryAcquire() {
		return ErrDeviceBusy
	}
	defer s.cycle.Release()

	if s.busy.Load() {
		return ErrDeviceBusy
	}
	return s.write(cmd)
}

// write must be called with the request cycle held and the device idle. The
// busy flag goes up before the bytes leave so a fast ready sentinel can't be
// lost.
func (s *Session) write(cmd protocol.Command) error {
	data := cmd.Encode()
	s.busy.Store(true)

	log.Debug().Str("session", s.id).Str("command", data).Msg("writing command")

	if _, err := s.transport.Write([]byte(data)); err != nil {
		s.busy.Store(false)
		return fmt.Errorf("failed to write command %q: %w", data, err)
	}

	s.opts.Metrics.commandSent(cmd.Kind())
	if cmd.Mutating() {
		s.cache.MarkDynamic()
	}
	return nil
}

// RequestState polls the device for a fresh state record and replaces the
// cache with it. tube 0 asks for the whole rig.
func (s *Session) RequestState(ctx context.Context, tube protocol.Tube, quick bool) (DeviceState, error) {
	if err := validateArgs("request state", requestStateArgs{Tube: int(tube)}); err != nil {
		return DeviceState{}, err
	}
	if s.closed.Load() {
		return DeviceState{}, ErrSessionClosed
	}
	if err := s.cycle.Acquire(ctx); err != nil {
		return DeviceState{}, err
	}
	defer s.cycle.Release()

	if err := s.waitIdle(ctx, s.opts.CommunicationTimeout); err != nil {
		return DeviceState{}, err
	}

	// only lines after this index may answer the request
	start := s.lines.Len()
	sentAt := s.clock.Now()
	if err := s.write(protocol.RequestState{Tube: tube, Quick: quick}); err != nil {
		return DeviceState{}, err
	}

	state, err := s.awaitState(ctx, start)
	if err != nil {
		return DeviceState{}, err
	}
	s.opts.Metrics.observeRequest(s.clock.Since(sentAt))

	s.cache.Store(state)
	st := state
	s.emit(Event{Method: EventStateUpdated, State: &st})

	log.Debug().Str("session", s.id).Stringer("state", state).Msg("state updated")
	return state, nil
}

// awaitState waits for a record line appended at or after index start. The
// timeout runs from the write and does not depend on the busy flag.
func (s *Session) awaitState(ctx context.Context, start int) (DeviceState, error) {
	deadline := s.clock.Now().Add(s.opts.CommunicationTimeout)
	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var fresh []string
	for {
		select {
		case <-ctx.Done():
			return DeviceState{}, fmt.Errorf("waiting for state: %w", ctx.Err())
		case <-ticker.Chan():
		}

		newLines := s.lines.Since(start + len(fresh))
		fresh = append(fresh, newLines...)
		if containsRecord(newLines) {
			return s.parseNewest(fresh)
		}

		if s.closed.Load() {
			return DeviceState{}, ErrSessionClosed
		}
		if !s.clock.Now().Before(deadline) {
			s.opts.Metrics.timeout()
			return DeviceState{}, fmt.Errorf(
				"%w: no state received within %s", ErrCommunicationTimeout, s.opts.CommunicationTimeout,
			)
		}
	}
}

func containsRecord(lines []string) bool {
	for _, l := range lines {
		if protocol.LooksLikeRecord(l) {
			return true
		}
	}
	return false
}

// parseNewest decodes the newest parsable record among lines.
func (s *Session) parseNewest(lines []string) (DeviceState, error) {
	var lastErr error
	for i := len(lines) - 1; i >= 0; i-- {
		rec, err := protocol.ParseRecord(lines[i])
		if err != nil {
			continue
		}
		state, err := NewDeviceState(s.completeRecord(rec), s.clock.Now())
		if err != nil {
			lastErr = err
			continue
		}
		return state, nil
	}

	s.opts.Metrics.malformedResponse()
	if lastErr != nil {
		return DeviceState{}, lastErr
	}
	return DeviceState{}, fmt.Errorf("%w: no parsable record in response", ErrMalformedState)
}

// completeRecord fills fields missing from a tube-scoped response with the
// cached values.
func (s *Session) completeRecord(rec protocol.Record) protocol.Record {
	cached, ok := s.cache.Snapshot()
	if !ok {
		return rec
	}
	for k, v := range cached.Record() {
		if _, present := rec[k]; !present {
			rec[k] = v
		}
	}
	return rec
}

// GetCachedOrRefresh returns the cached state while it is fresh and no pump
// command is acting on the rig, otherwise it polls the device.
func (s *Session) GetCachedOrRefresh(ctx context.Context) (DeviceState, error) {
	if state, ok := s.cache.Fresh(s.clock.Now(), s.opts.CommunicationTimeout); ok {
		return state, nil
	}
	return s.RequestState(ctx, protocol.TubeAll, false)
}

// SetLevel asks the firmware to bring tube to levelMM.
func (s *Session) SetLevel(ctx context.Context, tube protocol.Tube, levelMM float64) error {
	if err := validateArgs("set level", setLevelArgs{Tube: int(tube), Level: levelMM}); err != nil {
		return err
	}
	cmd := protocol.SetLevel{Tube: tube, DistanceMM: ConvertLevelToDistance(levelMM)}
	return s.SendCommand(ctx, cmd)
}

// SetInflow sets the fill pump duty of tube.
func (s *Session) SetInflow(ctx context.Context, tube protocol.Tube, rate int) error {
	return s.setRate(ctx, "set inflow", tube, rate, protocol.InflowPump)
}

// SetOutflow sets the drain pump duty of tube.
func (s *Session) SetOutflow(ctx context.Context, tube protocol.Tube, rate int) error {
	return s.setRate(ctx, "set outflow", tube, rate, protocol.OutflowPump)
}

func (s *Session) setRate(
	ctx context.Context,
	op string,
	tube protocol.Tube,
	rate int,
	pump func(protocol.Tube) protocol.Pump,
) error {
	if err := validateArgs(op, setRateArgs{Tube: int(tube), Rate: rate}); err != nil {
		return err
	}
	return s.SendCommand(ctx, protocol.SetRate{Pump: pump(tube), Rate: rate})
}

// Stop switches every tube pump off.
func (s *Session) Stop(ctx context.Context) error {
	var errs []error
	for _, tube := range protocol.Tubes {
		if err := s.SetInflow(ctx, tube, 0); err != nil {
			errs = append(errs, err)
		}
		if err := s.SetOutflow(ctx, tube, 0); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) emit(ev Event) {
	if s.opts.Events == nil {
		return
	}
	ev.SessionID = s.id
	ev.Time = s.clock.Now()
	select {
	case s.opts.Events <- ev:
	default:
		log.Debug().Str("method", ev.Method).Msg("event channel full, dropping event")
	}
}
