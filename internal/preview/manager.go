package preview

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"vnforge/internal/build"
	"vnforge/internal/logging"
	"vnforge/internal/project"
	"vnforge/internal/services"
)

// State is the lifecycle state of a preview server.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

const shutdownTimeout = 5 * time.Second

// Handle describes a preview server.
type Handle struct {
	Project   string    `json:"project"`
	State     State     `json:"state"`
	URL       string    `json:"url,omitempty"`
	Host      string    `json:"host,omitempty"`
	Port      int       `json:"port,omitempty"`
	Root      string    `json:"root,omitempty"`
	BuildID   string    `json:"build_id,omitempty"`
	Stale     bool      `json:"stale"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Option configures the manager.
type Option func(*Manager)

// WithBind sets the listen host and port. Port 0 picks a free port.
func WithBind(host string, port int) Option {
	return func(m *Manager) {
		if host != "" {
			m.host = host
		}
		m.port = port
	}
}

// WithTarget selects which build target is served.
func WithTarget(target string) Option {
	return func(m *Manager) {
		if target != "" {
			m.target = target
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

type server struct {
	handle Handle
	http   *http.Server
	done   chan struct{}
}

// Manager owns the preview server registry.
type Manager struct {
	store  *project.Store
	host   string
	port   int
	target string
	logger *slog.Logger

	mu      sync.Mutex
	servers map[string]*server
}

// NewManager constructs a preview manager for projects in store.
func NewManager(store *project.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		host:    "127.0.0.1",
		target:  build.DefaultTarget,
		logger:  logging.NewNop(),
		servers: make(map[string]*server),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "preview")
	return m
}

// Start serves the project's latest build. A project that already has a
// running server gets its existing handle back.
func (m *Manager) Start(ctx context.Context, name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.servers[name]; ok && existing.handle.State == StateRunning {
		h := existing.handle
		return &h, nil
	}

	p, err := m.store.Open(name)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(services.WithProject(ctx, name), m.logger)

	root := p.ArtifactLink(m.target)
	resolved, meta, err := build.CurrentArtifact(p, m.target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && resolved == "" {
			return nil, services.Wrap(services.ErrNotFound, "preview", "start",
				fmt.Sprintf("project %q has no %s build; build it first", name, m.target), nil)
		}
		logger.Debug("artifact metadata unreadable", logging.Error(err))
	}
	if _, err := os.Stat(filepath.Join(root, "index.html")); err != nil {
		return nil, services.Wrap(services.ErrPreview, "preview", "start",
			fmt.Sprintf("build for %q has no index.html", name), err)
	}

	handle := Handle{
		Project: name,
		State:   StateStarting,
		Root:    root,
		BuildID: meta.BuildID,
	}
	latest, err := p.LatestSourceChange()
	if err != nil {
		logger.Debug("source scan failed", logging.Error(err))
	} else if !meta.CreatedAt.IsZero() && latest.After(meta.CreatedAt) {
		handle.Stale = true
		logging.WarnWithContext(logger, "previewing stale build", "preview_stale",
			logging.String("build_id", meta.BuildID),
			logging.String("built_at", meta.CreatedAt.Format(time.RFC3339)),
			logging.String("source_changed_at", latest.UTC().Format(time.RFC3339)),
			logging.Alert("rebuild the project to preview recent changes"),
		)
	}
	m.servers[name] = &server{handle: handle}

	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		m.servers[name].handle.State = StateFailed
		m.servers[name].handle.Error = err.Error()
		if m.port != 0 {
			return nil, services.Wrap(services.ErrPortUnavailable, "preview", "listen",
				fmt.Sprintf("cannot bind %s", addr), err)
		}
		return nil, services.Wrap(services.ErrPreview, "preview", "listen", "", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	handle.Host = m.host
	handle.Port = port
	handle.URL = fmt.Sprintf("http://%s/index.html", net.JoinHostPort(urlHost(m.host), strconv.Itoa(port)))
	handle.State = StateRunning
	handle.StartedAt = time.Now().UTC()

	srv := &server{
		handle: handle,
		http: &http.Server{
			Handler:           newFileHandler(root),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		done: make(chan struct{}),
	}
	m.servers[name] = srv
	go m.serve(name, srv, listener)

	logger.Info("preview server listening",
		logging.String(logging.FieldEventType, "preview_started"),
		logging.String("url", handle.URL),
		logging.Bool("stale", handle.Stale),
	)
	h := handle
	return &h, nil
}

func (m *Manager) serve(name string, srv *server, listener net.Listener) {
	defer close(srv.done)
	err := srv.http.Serve(listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return
	}
	m.mu.Lock()
	if current, ok := m.servers[name]; ok && current == srv {
		current.handle.State = StateFailed
		current.handle.Error = err.Error()
	}
	m.mu.Unlock()
	m.logger.Error("preview server error",
		logging.String(logging.FieldProject, name),
		logging.String(logging.FieldEventType, "preview_failed"),
		logging.Error(err),
	)
}

// Stop shuts down the project's server. Stopping a project without a running
// server is a no-op.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	srv, ok := m.servers[name]
	if !ok || srv.http == nil || srv.handle.State != StateRunning {
		m.mu.Unlock()
		return nil
	}
	srv.handle.State = StateStopped
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.http.Shutdown(ctx)
	if err != nil {
		_ = srv.http.Close()
	}
	<-srv.done
	m.logger.Info("preview server stopped",
		logging.String(logging.FieldProject, name),
		logging.String(logging.FieldEventType, "preview_stopped"),
	)
	if err != nil {
		return services.Wrap(services.ErrPreview, "preview", "stop", "", err)
	}
	return nil
}

// Status reports the project's preview state without side effects. Projects
// that never had a server report StateStopped.
func (m *Manager) Status(name string) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if srv, ok := m.servers[name]; ok {
		return srv.handle
	}
	return Handle{Project: name, State: StateStopped}
}

// List returns every known server sorted by project.
func (m *Manager) List() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	handles := make([]Handle, 0, len(m.servers))
	for _, srv := range m.servers {
		handles = append(handles, srv.handle)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].Project < handles[j].Project })
	return handles
}

// StopAll shuts down every running server. It is used on process shutdown so
// no port outlives the manager.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	m.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := m.Stop(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func urlHost(host string) string {
	switch host {
	case "", "0.0.0.0", "::":
		return "127.0.0.1"
	}
	return host
}
