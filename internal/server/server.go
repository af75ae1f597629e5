package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/rickgao/mympd-webserver/internal/acl"
	"github.com/rickgao/mympd-webserver/internal/connection"
	"github.com/rickgao/mympd-webserver/internal/model"
	"github.com/rickgao/mympd-webserver/internal/router"
	"github.com/rickgao/mympd-webserver/internal/version"
	"github.com/rickgao/mympd-webserver/internal/webconf"
)

// Server serves the API, the websocket and published directories.
type Server struct {
	cfg      Config
	router   router.Router
	registry *connection.Registry
	settings *webconf.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      chi.Router
}

// New creates a Server. The registry must be the one the dispatcher delivers to.
func New(cfg Config, rt router.Router, registry *connection.Registry, settings *webconf.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaults.ReplyTimeout
	}
	if cfg.MaxRequestSize <= 0 {
		cfg.MaxRequestSize = defaults.MaxRequestSize
	}
	if cfg.MaxScriptRequestSize <= 0 {
		cfg.MaxScriptRequestSize = defaults.MaxScriptRequestSize
	}

	s := &Server{
		cfg:      cfg,
		router:   rt,
		registry: registry,
		settings: settings,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.mux = s.buildRouter()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// ACLs see the socket peer. Proxy headers are never consulted.
	r.Use(middleware.Recoverer)
	r.Use(s.aclMiddleware)

	r.Get("/ws/", s.handleWebSocket)

	r.Post("/api", s.handleAPI)
	r.Post("/api/script", s.handleScript)
	r.Get("/api/serverinfo", s.handleServerInfo)

	r.Get("/browse", s.handleBrowse)
	r.Get("/browse/*", s.handleBrowse)

	return r
}

// aclMiddleware applies the connection ACL to every request.
func (s *Server) aclMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.permitted(r, s.cfg.ACL, "acl") {
			http.Error(w, msgBlockedByACL, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// permitted evaluates list against the remote address. A malformed list denies.
func (s *Server) permitted(r *http.Request, list, name string) bool {
	remote := remoteAddr(r)
	decision, err := acl.Evaluate(list, remote)
	if err != nil {
		s.logger.Error("invalid acl", "acl", name, "error", err)
		return false
	}
	if decision == acl.Deny {
		s.logger.Warn("request blocked by acl", "acl", name, "remote", r.RemoteAddr, "path", r.URL.Path)
		return false
	}
	return true
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := connection.NewSession(ws, s.cfg.Session, s.logger)
	conn, err := s.registry.Open(connection.KindWebSocket, session)
	if err != nil {
		s.logger.Error("no connection identity for websocket", "error", err)
		ws.Close()
		return
	}
	defer s.registry.Close(conn.ID)

	logger := s.logger.With("conn_id", conn.ID)
	logger.Debug("websocket connected", "remote", r.RemoteAddr)

	welcome := model.NewNotify("welcome", map[string]any{"mympdVersion": version.Version})
	if err := session.Send(&model.WorkResult{ConnID: conn.ID, Method: "welcome", Data: welcome}); err != nil {
		logger.Warn("failed to queue welcome", "error", err)
	}

	err = session.Run()
	logger.Debug("websocket closed",
		"pong_age", time.Since(session.LastPongAt()).Round(time.Millisecond),
		"error", err,
	)
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.serveRequest(w, r, s.cfg.MaxRequestSize, s.router.Submit, msgInvalidRequest)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.RemoteScripting {
		http.Error(w, msgScriptingDisabled, http.StatusForbidden)
		return
	}
	if !s.permitted(r, s.cfg.ScriptACL, "script_acl") {
		http.Error(w, msgBlockedByACL, http.StatusForbidden)
		return
	}
	s.serveRequest(w, r, s.cfg.MaxScriptRequestSize, s.router.SubmitScript, msgInvalidScript)
}

// serveRequest holds a connection identity for the lifetime of one API call.
func (s *Server) serveRequest(w http.ResponseWriter, r *http.Request, limit int64, submit func(int64, []byte) error, invalid string) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		s.logger.Warn("failed to read api request", "remote", r.RemoteAddr, "error", err)
		writeJSON(w, http.StatusOK, model.NewMessage("", 0, invalid, true))
		return
	}

	exchange := connection.NewExchange()
	conn, err := s.registry.Open(connection.KindHTTP, exchange)
	if err != nil {
		s.logger.Error("no connection identity for api request", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, model.NewMessage("", 0, msgNoResponse, true))
		return
	}
	defer s.registry.Close(conn.ID)

	if err := submit(conn.ID, body); err != nil {
		writeJSON(w, http.StatusOK, model.NewMessage("", 0, invalid, true))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ReplyTimeout)
	defer cancel()

	res, err := exchange.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("api reply timed out", "conn_id", conn.ID, "timeout", s.cfg.ReplyTimeout)
			writeJSON(w, http.StatusGatewayTimeout, model.NewMessage("", 0, msgNoResponse, true))
		}
		return
	}
	writeResult(w, res)
}

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.NewResult("", 0, map[string]any{
		"version": version.Version,
		"ip":      localIP(r),
	}))
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	if !s.settings.Options().Publish {
		http.Error(w, msgPublishingDisabled, http.StatusForbidden)
		return
	}

	dir, rest, ok := s.settings.Snapshot().RewritePatterns.Resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = rest
	r2.URL.RawPath = ""
	http.FileServer(http.Dir(dir)).ServeHTTP(w, r2)
}

func writeResult(w http.ResponseWriter, res *model.WorkResult) {
	if res.Binary != nil {
		contentType := res.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(res.Binary)
		return
	}
	writeJSON(w, http.StatusOK, res.Data)
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// remoteAddr returns the TCP peer. An unparseable address is the zero Addr,
// which no rule matches.
func remoteAddr(r *http.Request) netip.Addr {
	ap, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr()
}

func localIP(r *http.Request) string {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
