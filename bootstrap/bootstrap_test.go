package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/svckit/component"
	"github.com/kbukum/svckit/config"
	"github.com/kbukum/svckit/di"
	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/logger"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

// mockComponent implements component.Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	block    bool
	health   component.Health
	started  bool
	stopped  bool
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.started = true
	m.record("start:" + m.name)
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopped = true
	m.record("stop:" + m.name)
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}
func (m *mockComponent) record(e string) {
	if m.events != nil {
		*m.events = append(*m.events, e)
	}
}

func healthy(name string) *mockComponent {
	return &mockComponent{
		name:   name,
		health: component.Health{Name: name, Status: component.StatusHealthy},
	}
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, cfg *testConfig, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithOutput(io.Discard)}, opts...)
	app, err := NewApp(cfg, opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

func noop(context.Context) error { return nil }

func TestNewApp(t *testing.T) {
	app := newTestApp(t, newTestConfig("test-svc", "1.0.0"))

	if app.Name != "test-svc" {
		t.Errorf("expected name 'test-svc', got %q", app.Name)
	}
	if app.Version != "1.0.0" {
		t.Errorf("expected version '1.0.0', got %q", app.Version)
	}
	if app.Builder == nil {
		t.Fatal("expected non-nil builder")
	}
	if app.Container != nil {
		t.Error("expected no container before startup")
	}
	if !app.Builder.Has(di.Base.Config) || !app.Builder.Has(di.Base.Logger) {
		t.Error("expected config and logger to be registered")
	}
	if app.Builder.Has(di.Base.Inspector) {
		t.Error("expected no inspector unless enabled")
	}
	// Config is typed
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected cfg.Name 'test-svc', got %q", app.Cfg.Name)
	}
	if app.gracefulTimeout != 15*time.Second {
		t.Errorf("expected graceful timeout from dispose_timeout, got %v", app.gracefulTimeout)
	}
}

type loadedConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
	Billing              struct {
		Currency string `mapstructure:"currency"`
	} `mapstructure:"billing"`
}

func TestLoadApp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := "environment: staging\ncontainer:\n  eager: [cache]\nbilling:\n  currency: EUR\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("BILLING_CONTAINER_INIT_TIMEOUT", "3s")

	var cfg loadedConfig
	app, err := LoadApp("billing", &cfg,
		WithConfigLoader(config.WithConfigFile(path)),
		WithLogger(logger.Nop()),
		WithOutput(io.Discard),
	)
	if err != nil {
		t.Fatalf("LoadApp failed: %v", err)
	}
	if app.Name != "billing" || cfg.Environment != "staging" || cfg.Billing.Currency != "EUR" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Container.InitTimeout != 3*time.Second || len(cfg.Container.Eager) != 1 {
		t.Errorf("unexpected container config %+v", cfg.Container)
	}
}

func TestLoadAppInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("name: [broken\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	var cfg loadedConfig
	_, err := LoadApp("billing", &cfg, WithConfigLoader(config.WithConfigFile(path)), WithLogger(logger.Nop()))
	if !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{
		ServiceConfig: config.ServiceConfig{
			// Name is empty: validation fails
			Environment: "development",
		},
	}
	_, err := NewApp(cfg, WithLogger(logger.Nop()))
	if !errors.IsCode(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewAppDefaultsVersion(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", ""))
	if app.Version == "" {
		t.Error("expected version to default to the build version")
	}
}

func TestNewAppWithOptions(t *testing.T) {
	key := di.Name("greeting")
	app := newTestApp(t, newTestConfig("test", "1.0"),
		WithGracefulTimeout(30*time.Second),
		WithModules(di.ModuleFunc(func(b *di.Builder) {
			b.Instance("hello", key)
		})),
	)

	if app.gracefulTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", app.gracefulTimeout)
	}
	if !app.Builder.Has(key) {
		t.Error("expected module registration")
	}
}

func TestRunLifecycle(t *testing.T) {
	var events []string
	app := newTestApp(t, newTestConfig("test", "1.0"))

	db := healthy("db")
	db.events = &events
	cache := healthy("cache")
	cache.events = &events
	app.RegisterComponent(db)
	app.RegisterComponent(cache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.OnStart(func(ctx context.Context) error {
		events = append(events, "onStart")
		return nil
	})
	app.OnConfigure(func(ctx context.Context, a *App[*testConfig]) error {
		cfg, err := di.Resolve[*testConfig](a.Container, di.Base.Config)
		if err != nil {
			return err
		}
		if cfg != a.Cfg {
			return fmt.Errorf("expected the app config to be registered")
		}
		events = append(events, "configure")
		return nil
	})
	app.OnReady(func(ctx context.Context) error {
		events = append(events, "onReady")
		cancel()
		return nil
	})
	app.OnStop(func(ctx context.Context) error {
		events = append(events, "onStop")
		return nil
	})

	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"start:db", "start:cache", "onStart", "configure", "onReady", "onStop", "stop:cache", "stop:db"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, events)
	}
	if !app.Container.Disposed() {
		t.Error("expected container to be disposed")
	}
}

func TestRunTask(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	c := healthy("worker")
	app.RegisterComponent(c)

	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		if !c.started {
			return fmt.Errorf("expected component to be started before the task")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !ran {
		t.Error("expected task to run")
	}
	if !c.stopped {
		t.Error("expected component to be stopped after the task")
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	taskErr := fmt.Errorf("task failed")

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return taskErr
	})
	if err != taskErr {
		t.Errorf("expected task error, got %v", err)
	}
	if !app.Container.Disposed() {
		t.Error("expected container to be disposed after a failed task")
	}
}

func TestStartupFailureReleasesStarted(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	first := healthy("first")
	second := healthy("second")
	second.startErr = fmt.Errorf("connection refused")
	app.RegisterComponent(first)
	app.RegisterComponent(second)

	ran := false
	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "initialization failed") {
		t.Fatalf("expected initialization error, got %v", err)
	}
	if !errors.IsCode(err, errors.ErrCodeInitializationFailed) {
		t.Errorf("expected INITIALIZATION_FAILED in chain, got %v", err)
	}
	if ran {
		t.Error("expected task not to run")
	}
	if !first.stopped {
		t.Error("expected the started component to be stopped")
	}
	if second.stopped {
		t.Error("expected the failed component not to be stopped")
	}
	statuses := app.Summary.Services()
	if len(statuses) != 2 || statuses[1].Healthy {
		t.Errorf("expected the failure to be tracked, got %+v", statuses)
	}
}

func TestEagerConfigKeys(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Container.Eager = []string{"cache"}

	initialized := false
	lazy := component.NewLazy("cache", func(ctx context.Context) error {
		initialized = true
		return nil
	})
	app := newTestApp(t, cfg, WithModules(di.ModuleFunc(func(b *di.Builder) {
		b.Instance(lazy, di.Name("cache"))
	})))

	if err := app.RunTask(context.Background(), noop); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if !initialized {
		t.Error("expected the eager key to be initialized at startup")
	}
}

func TestEagerUnknownKey(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Container.Eager = []string{"missing"}
	app := newTestApp(t, cfg)

	err := app.RunTask(context.Background(), noop)
	if !errors.IsCode(err, errors.ErrCodeUnknownService) {
		t.Errorf("expected UNKNOWN_SERVICE, got %v", err)
	}
}

func TestInitTimeout(t *testing.T) {
	cfg := newTestConfig("test", "1.0")
	cfg.Container.InitTimeout = 50 * time.Millisecond
	app := newTestApp(t, cfg)
	app.RegisterComponent(&mockComponent{name: "slow", block: true})

	start := time.Now()
	err := app.RunTask(context.Background(), noop)
	if err == nil {
		t.Fatal("expected startup to fail on init timeout")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected timeout to bound startup, took %v", elapsed)
	}
}

func TestBuildFailure(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"), WithBuilderOptions(di.WithMetadata(di.NoMetadata{})))
	app.Builder.ConstructorInject(func(s fmt.Stringer) *strings.Builder { return nil })

	err := app.RunTask(context.Background(), noop)
	if !errors.IsCode(err, errors.ErrCodeMissingMetadata) {
		t.Errorf("expected MISSING_DEPENDENCY_METADATA, got %v", err)
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Errorf("expected no error before startup, got %v", err)
	}

	app.RegisterComponent(healthy("db"))
	app.RegisterComponent(&mockComponent{
		name:   "queue",
		health: component.Health{Name: "queue", Status: component.StatusUnhealthy, Message: "no broker"},
	})

	err := app.RunTask(context.Background(), func(ctx context.Context) error {
		return app.ReadyCheck(ctx)
	})
	if err == nil || !strings.Contains(err.Error(), "queue=unhealthy(no broker)") {
		t.Errorf("expected unhealthy queue, got %v", err)
	}
}

func TestStopHookError(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	c := healthy("db")
	app.RegisterComponent(c)
	app.OnStop(func(ctx context.Context) error {
		return fmt.Errorf("deregister failed")
	})

	err := app.RunTask(context.Background(), noop)
	if err == nil || !strings.Contains(err.Error(), "deregister failed") {
		t.Errorf("expected stop hook error, got %v", err)
	}
	if !c.stopped {
		t.Error("expected container disposal despite the hook error")
	}
}

func TestStopAggregatesDisposalErrors(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	c := healthy("db")
	c.stopErr = fmt.Errorf("flush failed")
	app.RegisterComponent(c)

	err := app.RunTask(context.Background(), noop)
	if !errors.IsCode(err, errors.ErrCodeDisposalFailed) {
		t.Errorf("expected DISPOSAL_FAILED, got %v", err)
	}
}

func TestStartupHookFailure(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	c := healthy("db")
	app.RegisterComponent(c)
	app.OnStart(func(ctx context.Context) error {
		return fmt.Errorf("migrations failed")
	})

	err := app.RunTask(context.Background(), noop)
	if err == nil || !strings.Contains(err.Error(), "onStart hook failed") {
		t.Errorf("expected onStart error, got %v", err)
	}
	if !c.stopped {
		t.Error("expected started components to be released")
	}
}

func TestSummaryDisplay(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, newTestConfig("billing", "2.1.0"), WithOutput(&out))
	app.RegisterComponent(healthy("db"))

	if err := app.RunTask(context.Background(), noop); err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"billing v2.1.0", "name:config", "name:component:db", "Health Check", "All services initialized (1/1)"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected summary to contain %q:\n%s", want, text)
		}
	}
}

func TestInspectorEnabled(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	cfg := newTestConfig("test", "1.0")
	cfg.Inspect = config.InspectConfig{Enabled: true, Host: "127.0.0.1", Port: port}
	app := newTestApp(t, cfg)
	if !app.Builder.Has(di.Base.Inspector) {
		t.Fatal("expected inspector registration")
	}

	err = app.RunTask(context.Background(), func(ctx context.Context) error {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/registrations", port))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
}

func TestShutdownWithoutStartup(t *testing.T) {
	app := newTestApp(t, newTestConfig("test", "1.0"))
	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("expected clean shutdown without a container, got %v", err)
	}
}

func TestRunHooks(t *testing.T) {
	var order []int
	hooks := []Hook{
		func(ctx context.Context) error { order = append(order, 1); return nil },
		func(ctx context.Context) error { order = append(order, 2); return fmt.Errorf("stop") },
		func(ctx context.Context) error { order = append(order, 3); return nil },
	}
	err := runHooks(context.Background(), hooks)
	if err == nil || !strings.Contains(err.Error(), "hook 1 failed") {
		t.Errorf("expected hook 1 error, got %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected hooks to stop at the first error, got %v", order)
	}
}
