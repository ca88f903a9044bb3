package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	protocol "github.com/tliron/glsp/protocol_3_16"

	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// AppQueries is the daemon surface served over the socket. Requests run
// concurrently; the implementation serializes them.
type AppQueries interface {
	DidOpen(ctx context.Context, path, text string) ([]protocol.Diagnostic, error)
	DidChange(ctx context.Context, path, text string) ([]protocol.Diagnostic, error)
	DidClose(ctx context.Context, path string) error
	Completion(ctx context.Context, path string, line, character int) ([]protocol.CompletionItem, error)
	Definition(ctx context.Context, path string, line, character int) ([]protocol.Location, error)
	References(ctx context.Context, path string, line, character int) ([]protocol.Location, error)
	Steps(ctx context.Context, unboundOnly bool) (StepsResult, error)
	Bindings(ctx context.Context) (BindingsResult, error)
	Health(ctx context.Context) (HealthResult, error)
	Reindex(ctx context.Context) (ReindexResult, error)
}

// requestTimeout bounds a single request on the server side.
const requestTimeout = 2 * time.Minute

// Server is the daemon that listens on a Unix socket and serves index queries.
type Server struct {
	queries  AppQueries
	listener net.Listener
	sockPath string
	started  time.Time

	ctx    context.Context // cancelled by Stop; parent of every request context
	cancel context.CancelFunc

	done         chan struct{}
	shutdownCh   chan struct{} // closed when a remote shutdown request is received
	shutdownOnce sync.Once
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewServer creates a daemon server backed by queries.
// The queries parameter may be nil, in which case only health and shutdown
// are answered.
func NewServer(sockPath string, queries AppQueries) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		queries:    queries,
		sockPath:   sockPath,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
}

// Start begins listening on the Unix socket. It handles stale sockets by
// attempting a connection first — if the connection fails, the stale socket
// is removed before binding.
func (s *Server) Start() error {
	// Handle stale socket
	if _, err := os.Stat(s.sockPath); err == nil {
		conn, err := net.DialTimeout("unix", s.sockPath, 500*time.Millisecond)
		if err == nil {
			conn.Close()
			return fmt.Errorf("daemon already running at %s", s.sockPath)
		}
		// Stale socket — remove it
		os.Remove(s.sockPath)
	}

	ln, err := net.Listen("unix", s.sockPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	s.started = time.Now()

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop gracefully shuts down the server, closing the listener and removing the socket file.
// Idempotent — safe to call multiple times (e.g., after remote shutdown + signal).
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		s.cancel()
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.sockPath)
	})
	return nil
}

// ShutdownCh returns a channel that is closed when a remote shutdown request
// is received. The daemon's main goroutine should select on this alongside
// OS signals so the process actually exits after a remote stop.
func (s *Server) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// Addr returns the socket path the server is listening on.
func (s *Server) Addr() string {
	return s.sockPath
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Unblock the scanner when the server stops.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-connDone:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4*1024*1024), 4*1024*1024) // 4MB max message: open carries whole documents

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(conn, Response{Error: "invalid request JSON"})
			continue
		}

		resp := s.handleRequest(req)
		s.writeResponse(conn, resp)

		if req.Method == MethodShutdown {
			s.shutdownOnce.Do(func() { close(s.shutdownCh) })
			return
		}
	}
}

func (s *Server) handleRequest(req Request) Response {
	switch req.Method {
	case MethodHealth:
		return s.handleHealth(req)
	case MethodShutdown:
		return Response{ID: req.ID, Result: struct{}{}}
	}
	if s.queries == nil {
		return Response{ID: req.ID, Error: fmt.Sprintf("%s not available", req.Method), Code: string(specerr.Unavailable)}
	}

	ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
	defer cancel()

	switch req.Method {
	case MethodOpen, MethodChange:
		return s.handleDocument(ctx, req)
	case MethodClose:
		return s.handleClose(ctx, req)
	case MethodComplete, MethodDefinition, MethodReferences:
		return s.handlePosition(ctx, req)
	case MethodSteps:
		return s.handleSteps(ctx, req)
	case MethodBindings:
		result, err := s.queries.Bindings(ctx)
		return reply(req, result, err)
	case MethodReindex:
		result, err := s.queries.Reindex(ctx)
		return reply(req, result, err)
	default:
		return Response{ID: req.ID, Error: fmt.Sprintf("unknown method: %s", req.Method)}
	}
}

// decodeParams re-marshals the generic params into the typed struct.
func decodeParams(req Request, v interface{}) error {
	paramsJSON, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	return json.Unmarshal(paramsJSON, v)
}

func invalidParams(req Request) Response {
	return Response{ID: req.ID, Error: fmt.Sprintf("invalid %s params", req.Method)}
}

// reply builds a response from a handler result. Coded errors keep their code.
func reply(req Request, result interface{}, err error) Response {
	if err != nil {
		return Response{ID: req.ID, Error: err.Error(), Code: string(specerr.CodeOf(err))}
	}
	return Response{ID: req.ID, Result: result}
}

func (s *Server) handleDocument(ctx context.Context, req Request) Response {
	var params DocumentParams
	if err := decodeParams(req, &params); err != nil || params.Path == "" {
		return invalidParams(req)
	}
	var (
		diags []protocol.Diagnostic
		err   error
	)
	if req.Method == MethodOpen {
		diags, err = s.queries.DidOpen(ctx, params.Path, params.Text)
	} else {
		diags, err = s.queries.DidChange(ctx, params.Path, params.Text)
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	return reply(req, DiagnosticsResult{Diagnostics: diags}, err)
}

func (s *Server) handleClose(ctx context.Context, req Request) Response {
	var params DocumentParams
	if err := decodeParams(req, &params); err != nil || params.Path == "" {
		return invalidParams(req)
	}
	return reply(req, struct{}{}, s.queries.DidClose(ctx, params.Path))
}

func (s *Server) handlePosition(ctx context.Context, req Request) Response {
	var params PositionParams
	if err := decodeParams(req, &params); err != nil || params.Path == "" {
		return invalidParams(req)
	}
	if req.Method == MethodComplete {
		items, err := s.queries.Completion(ctx, params.Path, params.Line, params.Character)
		if items == nil {
			items = []protocol.CompletionItem{}
		}
		return reply(req, CompletionResult{Items: items}, err)
	}

	var (
		locs []protocol.Location
		err  error
	)
	if req.Method == MethodDefinition {
		locs, err = s.queries.Definition(ctx, params.Path, params.Line, params.Character)
	} else {
		locs, err = s.queries.References(ctx, params.Path, params.Line, params.Character)
	}
	if locs == nil {
		locs = []protocol.Location{}
	}
	return reply(req, LocationsResult{Locations: locs}, err)
}

func (s *Server) handleSteps(ctx context.Context, req Request) Response {
	var params StepsParams
	if req.Params != nil {
		if err := decodeParams(req, &params); err != nil {
			return invalidParams(req)
		}
	}
	result, err := s.queries.Steps(ctx, params.Unbound)
	return reply(req, result, err)
}

func (s *Server) handleHealth(req Request) Response {
	result := HealthResult{Status: "ok"}
	if s.queries != nil {
		ctx, cancel := context.WithTimeout(s.ctx, requestTimeout)
		defer cancel()
		var err error
		if result, err = s.queries.Health(ctx); err != nil {
			return reply(req, nil, err)
		}
	}
	result.Uptime = time.Since(s.started).Round(time.Second).String()
	return Response{ID: req.ID, Result: result}
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	conn.Write(data)
}
