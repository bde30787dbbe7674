package graph

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/km-arc/go-dipend/framework/config"
	"github.com/km-arc/go-dipend/framework/errs"
	gohttp "github.com/km-arc/go-dipend/framework/http"
	"github.com/km-arc/go-dipend/framework/routing"
)

//go:embed public
var public embed.FS

const shutdownTimeout = 5 * time.Second

// Server serves the graph of one container:
//
//	GET /api/data           {nodes, links, types}; ?type=singleton,context filters
//	GET /api/order          node names, dependencies first
//	GET /api/nodes/{name}   one node with its direct neighbours
//	GET /metrics            Prometheus metrics, when a handler is attached
//	GET /                   the visualizer page
type Server struct {
	src     Source
	cfg     config.ServerConfig
	logger  zerolog.Logger
	metrics http.Handler
	router  *routing.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMetrics exposes h at the configured metrics path.
func WithMetrics(h http.Handler) ServerOption {
	return func(s *Server) { s.metrics = h }
}

// NewServer builds the routes for src.
func NewServer(src Source, cfg config.ServerConfig, logger zerolog.Logger, opts ...ServerOption) *Server {
	s := &Server{src: src, cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *routing.Router {
	r := routing.New(s.logger)

	r.Prefix("/api", func(api *routing.Router) {
		api.Get("/data", s.handleData)
		api.Get("/order", s.handleOrder)
		api.Get("/nodes/{name}", s.handleNode)
	})

	if path, ok := s.cfg.Metrics().Get(); ok && s.metrics != nil {
		r.Mount(path, s.metrics)
	}

	static, _ := fs.Sub(public, "public")
	files := http.FileServerFS(static)
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		// Unknown paths fall back to the page, the visualizer routes client side.
		if _, err := fs.Stat(static, strings.TrimPrefix(req.URL.Path, "/")); err != nil {
			req.URL.Path = "/"
		}
		files.ServeHTTP(w, req)
	})
	return r
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("graph server listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", "http://"+ln.Addr().String()).Msg("graph server started")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graph server shutdown: %w", err)
	}
	s.logger.Info().Msg("graph server stopped")
	return nil
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	data, ok := s.build(res)
	if !ok {
		return
	}
	types := lo.Map(gohttp.NewRequest(r).QueryList("type"), func(t string, _ int) string {
		return strings.ToUpper(t)
	})
	res.JSON(http.StatusOK, data.Filter(types...))
}

func (s *Server) handleOrder(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	data, ok := s.build(res)
	if !ok {
		return
	}
	res.Success(lo.Map(data.Nodes, func(n Node, _ int) string { return n.Node }))
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	data, ok := s.build(res)
	if !ok {
		return
	}
	name := gohttp.NewRequest(r).RouteParam("name")
	node, dependsOn, usedBy, found := data.Neighbours(name)
	if !found {
		res.NotFound(fmt.Sprintf("no dependency named %q", name))
		return
	}
	res.Success(map[string]any{
		"node":       node.Node,
		"type":       node.Type,
		"depends_on": dependsOn,
		"used_by":    usedBy,
	})
}

// build writes the error response itself when the graph cannot be built.
func (s *Server) build(res *gohttp.Response) (*Data, bool) {
	data, err := Build(s.src)
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, errs.ErrCyclicDependencies):
		res.Error(http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("graph build failed")
		res.ServerError(err.Error())
	}
	return nil, false
}
