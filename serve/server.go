package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"sync"

	inkwell "github.com/inkfall/inkwell"
	defaults "github.com/inkfall/inkwell/default"
	"github.com/inkfall/inkwell/suggest"
)

// Suggester processes a suggestion request and returns a response.
type Suggester interface {
	Suggest(ctx context.Context, req *inkwell.Request) *inkwell.Response
	WarmContext(ctx context.Context, docPath string)
	Close()
}

// sessionEntry tracks a cancellable in-flight request for a session.
type sessionEntry struct {
	requestID int
	cancel    context.CancelFunc
}

// Server listens on a Unix domain socket for suggestion requests.
type Server struct {
	listener net.Listener
	sockPath string
	engine   Suggester

	mu       sync.Mutex
	sessions map[string]sessionEntry
}

// NewServer creates a new IPC server bound to the given socket path.
func NewServer(sockPath string) (*Server, error) {
	engine := suggest.NewEngine()
	return NewServerWithSuggester(sockPath, engine)
}

// NewServerWithSuggester creates a new IPC server with a custom Suggester.
func NewServerWithSuggester(sockPath string, suggester Suggester) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		engine:   suggester,
		sessions: make(map[string]sessionEntry),
	}, nil
}

// Serve accepts connections and handles requests.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server, the suggestion engine, and removes the
// socket file.
func (s *Server) Close() {
	s.suggester().Close()
	s.listener.Close()
	os.Remove(s.sockPath)
}

// suggester returns the current engine. Reads go through the mutex
// because reloadEngine swaps the engine under it.
func (s *Server) suggester() Suggester {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "data", string(raw))

	// Check if this is a context warm-up request (has "type":"context" field)
	var ctxReq inkwell.ContextRequest
	if err := json.Unmarshal(raw, &ctxReq); err == nil && ctxReq.Type == "context" {
		s.handleContextRequest(conn, &ctxReq)
		return
	}

	// Check if this is a config request (has "action" field)
	var cfgReq inkwell.ConfigRequest
	if err := json.Unmarshal(raw, &cfgReq); err == nil && cfgReq.Action != "" {
		s.handleConfigRequest(conn, &cfgReq)
		return
	}

	var req inkwell.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("invalid request", "error", err)
		return
	}

	// Cancel any in-flight request for this session and create a new context.
	ctx, cancel := context.WithCancel(context.Background())
	sid := req.SessionID
	reqID := req.RequestID
	if sid != "" {
		s.mu.Lock()
		if prev, ok := s.sessions[sid]; ok {
			prev.cancel()
		}
		s.sessions[sid] = sessionEntry{requestID: reqID, cancel: cancel}
		s.mu.Unlock()
	}
	defer func() {
		cancel()
		if sid != "" {
			s.mu.Lock()
			if cur, ok := s.sessions[sid]; ok && cur.requestID == reqID {
				delete(s.sessions, sid)
			}
			s.mu.Unlock()
		}
	}()

	resp := s.suggester().Suggest(ctx, &req)

	// If cancelled, skip writing — the client has already moved on.
	if ctx.Err() != nil {
		return
	}

	resp.RequestID = req.RequestID

	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

func (s *Server) handleContextRequest(conn net.Conn, req *inkwell.ContextRequest) {
	resp := inkwell.ContextResponse{OK: true}

	if req.DocPath == "" {
		resp.OK = false
		resp.Error = &inkwell.Error{Code: "invalid_request", Message: "doc_path is required"}
	} else {
		// Gather in background — respond immediately
		go s.suggester().WarmContext(context.Background(), req.DocPath)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal context response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

func (s *Server) handleConfigRequest(conn net.Conn, req *inkwell.ConfigRequest) {
	var resp inkwell.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := inkwell.LoadConfig()
		if err != nil {
			resp.Error = &inkwell.Error{
				Code:    "config_error",
				Message: err.Error(),
			}
		} else {
			resp.Config = cfg
		}

	case "reload":
		// Respond immediately; reload the engine in the background so a
		// slow journal re-index never blocks the client.
		go s.reloadEngine()
		cfg, _ := inkwell.LoadConfig()
		resp.Config = cfg

	case "defaults":
		resp.Config = inkwell.DefaultConfig()

	case "default_prompts":
		resp.InsertionPrompt = defaults.DefaultInsertionPrompt
		resp.EditingPrompt = defaults.DefaultEditingPrompt

	case "validate":
		cfg, err := inkwell.LoadConfig()
		if err != nil {
			resp.Error = &inkwell.Error{
				Code:    "config_error",
				Message: err.Error(),
			}
		} else {
			resp.Warnings = inkwell.ValidateConfig(cfg)
		}

	default:
		resp.Error = &inkwell.Error{
			Code:    "unknown_action",
			Message: "unknown config action: " + req.Action,
		}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal config response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}

func (s *Server) reloadEngine() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close old engine
	if s.engine != nil {
		s.engine.Close()
	}

	// Create new engine with updated config
	s.engine = suggest.NewEngine()
	slog.Info("engine reloaded")
}
