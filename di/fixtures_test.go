package di

import (
	"context"
	"sync"

	"github.com/kbukum/svckit/logger"
)

type Config struct{ Value int }

type Repo struct{ Cfg *Config }

func NewRepo(cfg *Config) *Repo { return &Repo{Cfg: cfg} }

type Service struct {
	Repo *Repo
	Cfg  *Config
}

func NewService(repo *Repo, cfg *Config) *Service { return &Service{Repo: repo, Cfg: cfg} }

type Handler struct {
	Svc    *Service `inject:""`
	Cfg    *Config  `inject:"Config"`
	plain  int
	Ignore string
}

// newTestBuilder returns a builder that logs nothing and records nothing.
func newTestBuilder(opts ...BuilderOption) *Builder {
	return NewBuilder(append([]BuilderOption{WithLogger(logger.Nop())}, opts...)...)
}

func mustBuild(t interface {
	Helper()
	Fatalf(string, ...any)
}, b *Builder) *Container {
	t.Helper()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return c
}

// initService counts InitializeAsync calls. When release is set the call
// blocks until it is closed.
type initService struct {
	mu      sync.Mutex
	calls   int
	ready   bool
	fail    []error
	release chan struct{}
	started chan struct{}
}

func (s *initService) IsInitialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *initService) InitializeAsync(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	started := s.started
	s.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fail) > 0 {
		err := s.fail[0]
		s.fail = s.fail[1:]
		return err
	}
	s.ready = true
	return nil
}

func (s *initService) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recorder appends its name to a shared log when released.
type recorder struct {
	name string
	log  *[]string
	err  error
}

type syncRecorder struct{ recorder }

func (r *syncRecorder) Dispose() error {
	*r.log = append(*r.log, r.name)
	return r.err
}

type closerRecorder struct{ recorder }

func (r *closerRecorder) Close() error {
	*r.log = append(*r.log, r.name)
	return r.err
}

type asyncRecorder struct{ recorder }

func (r *asyncRecorder) DisposeAsync(ctx context.Context) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

type plainService struct{ name string }
