package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Makepad-fr/tarefas/internal/auth"
	"github.com/Makepad-fr/tarefas/internal/config"
	"github.com/Makepad-fr/tarefas/internal/kv"
	"github.com/Makepad-fr/tarefas/internal/kv/filekv"
	"github.com/Makepad-fr/tarefas/internal/kv/rediskv"
	"github.com/Makepad-fr/tarefas/internal/kv/sqlkv"
	"github.com/Makepad-fr/tarefas/internal/remote"
	"github.com/Makepad-fr/tarefas/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// session is one command's view of the world: the local store, the
// remote sink and the state store wired over them.
type session struct {
	cfg     config.Config
	log     *slog.Logger
	local   kv.Store
	sink    remote.Sink
	store   *state.Store
	metrics *http.Server
}

// openKV picks the local backend named by the config.
func openKV(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendRedis:
		return rediskv.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
		return sqlkv.Open(ctx, sqlkv.SQLite, cfg.SQLDSN)
	case config.BackendMySQL:
		return sqlkv.Open(ctx, sqlkv.MySQL, cfg.SQLDSN)
	default:
		return filekv.New(cfg.DataDir)
	}
}

// openSink picks the remote mirror. The HTTP sink reads the token on
// every request so a login mid-session is picked up.
func openSink(cfg config.Config, tokens *auth.Source, log *slog.Logger) remote.Sink {
	switch strings.ToLower(cfg.Sink) {
	case config.SinkKafka:
		return remote.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.SinkNone:
		return remote.Nop{}
	default:
		return remote.NewHTTPSink(cfg.APIURL, tokens.Bearer,
			remote.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			remote.WithLogger(log),
		)
	}
}

func (g *globals) open(ctx context.Context) (*session, error) {
	local, err := openKV(ctx, g.cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", g.cfg.Backend, err)
	}
	sink := openSink(g.cfg, auth.NewSource(local), g.log)

	reg := prometheus.NewRegistry()
	store := state.New(local, sink,
		state.WithLogger(g.log),
		state.WithTimeout(g.cfg.Timeout),
		state.WithRegisterer(reg),
	)
	store.Load(ctx)

	s := &session{cfg: g.cfg, log: g.log, local: local, sink: sink, store: store}
	if g.cfg.MetricsAddr != "" {
		s.serveMetrics(reg)
	}
	return s, nil
}

func (s *session) serveMetrics(reg *prometheus.Registry) {
	s.metrics = &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("metrics listener", "addr", s.cfg.MetricsAddr, "error", err)
		}
	}()
}

// await waits for one mutation's effects, bounded by twice the effect
// timeout (persist and sync run in parallel, but each may queue).
func (s *session) await(eff *state.Effects) {
	ctx, cancel := context.WithTimeout(context.Background(), s.grace())
	defer cancel()
	if err := eff.Wait(ctx); err != nil {
		s.log.Warn("effects still pending", "error", err)
	}
}

func (s *session) grace() time.Duration {
	if s.cfg.Timeout <= 0 {
		return 2 * state.DefaultTimeout
	}
	return 2 * s.cfg.Timeout
}

// close drains the store, then releases the sink and the local backend.
// Failures are logged; the command's own result stands.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.grace())
	defer cancel()

	var errs []error
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	if c, ok := s.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink: %w", err))
		}
	}
	if err := s.local.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	if s.metrics != nil {
		_ = s.metrics.Shutdown(ctx)
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("session close", "error", err)
	}
}
