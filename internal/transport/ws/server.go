// Package ws serves simulations to browser clients over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/logging"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/ratelimit"
	"github.com/agrioracle/agri-oracle/internal/sampler"
	"github.com/agrioracle/agri-oracle/internal/sanitize"
	"github.com/agrioracle/agri-oracle/internal/scenario"
	"github.com/agrioracle/agri-oracle/internal/shock"
)

const (
	defaultReadTimeout = 120 * time.Second
	writeTimeout       = 5 * time.Second
	maxMessageBytes    = 64 * 1024
)

// Runner executes simulation requests.
type Runner interface {
	Run(ctx context.Context, req oracle.Request) (*oracle.Result, error)
}

// Options configures a Server.
type Options struct {
	// MaxShots caps the shot count a client may request (0 = no cap).
	MaxShots int

	// Limiter throttles SIMULATE messages per connection. Nil means
	// 30 per minute with a burst of 5.
	Limiter *ratelimit.Limiter

	// ReadTimeout closes idle connections. Zero means two minutes.
	ReadTimeout time.Duration

	Logger *slog.Logger
}

// Server upgrades HTTP requests and answers SIMULATE messages.
type Server struct {
	runner   Runner
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
	nextConn atomic.Uint64
}

// NewServer creates a websocket server backed by runner.
func NewServer(runner Runner, opts Options) *Server {
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.PerMinute(30, 5)
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		runner: runner,
		opts:   opts,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // local UI
		},
	}
}

// Handler returns the HTTP handler that upgrades to a websocket.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		conn.SetReadLimit(maxMessageBytes)

		connID := fmt.Sprintf("conn-%d", s.nextConn.Add(1))
		defer s.opts.Limiter.Forget(connID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.log.Debug("websocket connected", "conn", connID, "remote", r.RemoteAddr)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			reply := s.handle(ctx, connID, msg)
			if err := writeJSON(conn, reply); err != nil {
				break
			}
		}

		s.log.Debug("websocket disconnected", "conn", connID)
	}
}

// handle turns one inbound message into its reply.
func (s *Server) handle(ctx context.Context, connID string, msg []byte) any {
	base, err := decodeBase(msg)
	if err != nil {
		return errorMsg("", ErrBadRequest, "malformed JSON")
	}
	requestID := sanitize.Identifier(base.RequestID)

	if base.Type != TypeSimulate {
		return errorMsg(requestID, ErrBadRequest, fmt.Sprintf("unsupported message type %q", base.Type))
	}
	if err := scenario.ValidateJSON(scenario.SimulateSchema, msg); err != nil {
		return errorMsg(requestID, ErrBadRequest, err.Error())
	}

	var req SimulateMsg
	if err := json.Unmarshal(msg, &req); err != nil {
		return errorMsg(requestID, ErrBadRequest, err.Error())
	}
	sc := req.Scenario
	sc.Initial = sc.Initial.Normalize()

	if s.opts.MaxShots > 0 && sc.Shots > s.opts.MaxShots {
		return errorMsg(requestID, ErrBadRequest, fmt.Sprintf("shots %d exceeds the limit of %d", sc.Shots, s.opts.MaxShots))
	}
	if !s.opts.Limiter.Allow(connID) {
		return errorMsg(requestID, ErrRateLimit, (&ratelimit.LimitError{Key: "simulate"}).Error())
	}

	res, err := s.runner.Run(ctx, oracle.Request{
		Initial:     sc.Initial,
		FromHistory: sc.FromHistory,
		Shocks:      sc.Shocks,
		Shots:       sc.Shots,
		Seed:        sc.Seed,
		Order:       decoder.Order(sc.Order),
		Narrate:     sc.Narrate,
		Title:       sc.Name,
		Description: sc.Description,
	})
	if err != nil {
		if res != nil && errors.Is(err, oracle.ErrNarrative) {
			return ResultMsg{Type: TypeResult, RequestID: requestID, Result: res, NarrativeError: err.Error()}
		}
		s.log.Debug("simulation rejected", "conn", connID, "request_id", requestID, "error", err)
		return errorMsg(requestID, errorCode(err), err.Error())
	}

	return ResultMsg{Type: TypeResult, RequestID: requestID, Result: res}
}

func errorCode(err error) string {
	var unknown *shock.UnknownShockError
	var shots *sampler.InvalidShotsError
	switch {
	case errors.As(err, &unknown):
		return ErrUnknownShock
	case errors.As(err, &shots):
		return ErrBadRequest
	default:
		return ErrInternal
	}
}

func errorMsg(requestID, code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, RequestID: requestID, Code: code, Message: message}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
