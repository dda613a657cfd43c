// Package mcp provides an MCP (Model Context Protocol) server that runs
// recuria experiments and answers questions about stored batches.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/config"
	"github.com/recuria/recuria/internal/primes"
	"github.com/recuria/recuria/internal/ratelimit"
	"github.com/recuria/recuria/internal/store"
)

// Server wraps the MCP SDK server.
type Server struct {
	server    *sdk.Server
	root      string
	settings  *config.RecuriaConfig
	store     store.Store
	ownsStore bool
	clock     clock.Clock
	logger    *slog.Logger
	audit     *AuditLogger
	limiters  ratelimit.ToolLimiters

	primesMu sync.Mutex
	primes   *primes.Set
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "recuria")
	Version string // Server version
	Root    string // Project root; the audit log goes under Root/.recuria

	// Settings is the base configuration for simulations. nil uses config.Default().
	Settings *config.RecuriaConfig

	// Store holds run history. nil uses an in-memory store owned by the server.
	Store store.Store

	Clock  clock.Clock
	Logger *slog.Logger
}

// NewServer creates a new MCP server with recuria tools.
func NewServer(cfg *Config) (*Server, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	s := &Server{
		root:     cfg.Root,
		settings: settings,
		store:    cfg.Store,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
		s.ownsStore = true
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	s.limiters = ratelimit.NewToolLimiters(s.clock)
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Root != "" {
		s.audit = NewAuditLogger(cfg.Root)
	}

	s.server = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			s.logger.Debug("mcp client initialized")
		},
	})

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until the client disconnects, the context is
// cancelled, or the process receives an interrupt.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if closeErr := s.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close releases the audit log and any store the server created.
func (s *Server) Close() error {
	var err error
	if s.ownsStore {
		err = s.store.Close()
	}
	if auditErr := s.audit.Close(); err == nil {
		err = auditErr
	}
	return err
}

// primeSet returns a prime set covering limit, regenerating or reloading
// only when the cached set is too small.
func (s *Server) primeSet(limit int) (*primes.Set, error) {
	s.primesMu.Lock()
	defer s.primesMu.Unlock()

	if s.primes != nil && s.primes.Covers(limit) {
		return s.primes, nil
	}
	set, err := primes.Resolve(s.settings.Primes.File, limit)
	if err != nil {
		return nil, err
	}
	s.primes = set
	return set, nil
}
