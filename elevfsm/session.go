// session.go
// Purpose: One elevator per client connection. Reads floor requests,
// moves the car a floor at a time, reports every step back to the client
// and records each arrival in the shared visit table.
package elevfsm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"elevsim/common"
	"elevsim/elevnetwork"
	"elevsim/logger"
)

// ArrivalRecorder is the part of the visit store a session writes to.
type ArrivalRecorder interface {
	RecordArrival(floor, occupancy int)
}

type Session struct {
	ID string

	cfg   common.Config
	conn  elevnetwork.Conn
	stats ArrivalRecorder
	elev  Elevator
	log   zerolog.Logger
}

func NewSession(cfg common.Config, conn elevnetwork.Conn, stats ArrivalRecorder) *Session {
	id := uuid.NewString()
	return &Session{
		ID:    id,
		cfg:   cfg,
		conn:  conn,
		stats: stats,
		elev:  elevator_initialized(cfg),
		log:   logger.GetLogger().With().Str("session", id).Logger(),
	}
}

// State returns a copy of the elevator. Not safe to call while Run is active
// on another goroutine.
func (s *Session) State() Elevator {
	e := s.elev
	if e.Requested != nil {
		r := *e.Requested
		e.Requested = &r
	}
	return e
}

// Run serves the connection until the peer closes it, the transport fails or
// ctx is cancelled. A peer close is answered with the same code and reason.
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close(elevnetwork.CloseGoingAway, "server shutting down")
		case <-done:
		}
	}()

	for {
		msg, err := s.conn.ReadMessage()
		if err != nil {
			var ce *elevnetwork.CloseError
			if errors.As(err, &ce) {
				s.log.Debug().Int("code", ce.Code).Str("reason", ce.Reason).Msg("peer closed, echoing close")
				return s.conn.Close(ce.Code, ce.Reason)
			}
			return s.fail(ctx, err)
		}

		if err := s.HandleMessage(ctx, msg); err != nil {
			return s.fail(ctx, err)
		}
	}
}

func (s *Session) fail(ctx context.Context, err error) error {
	_ = s.conn.Close(elevnetwork.CloseGoingAway, "")
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("session %s: %w", s.ID, err)
}

// HandleMessage processes one inbound message. Anything that is not an
// integer is dropped without a reply.
func (s *Session) HandleMessage(ctx context.Context, msg string) error {
	s.log.Debug().Str("msg", msg).Msg("message received")

	floor, err := strconv.Atoi(strings.TrimSpace(msg))
	if err != nil {
		return nil
	}
	if !s.cfg.ValidFloor(floor) {
		s.log.Debug().Int("floor", floor).Msg("rejected floor request")
		return s.conn.WriteMessage(MsgInvalidFloor)
	}
	return s.Request(ctx, floor)
}

// Request boards and drops off passengers, then drives the car to floor one
// step at a time.
func (s *Session) Request(ctx context.Context, floor int) error {
	e := &s.elev
	e.Requested = &floor

	e.Occupancy += passengersEntering(s.cfg, *e)
	if floor != e.Floor {
		e.Occupancy -= passengersLeaving(*e, floor)
	}

	for e.Floor != floor {
		if e.Floor < floor {
			e.Floor++
		} else {
			e.Floor--
		}

		s.stats.RecordArrival(e.Floor, e.Occupancy)

		if err := s.conn.WriteMessage(StatusMessage(e.Floor, e.Occupancy)); err != nil {
			return fmt.Errorf("send status: %w", err)
		}
		if err := travel(ctx, s.cfg.TravelDelay); err != nil {
			return err
		}
	}
	return nil
}
