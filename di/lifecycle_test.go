package di

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/multierr"

	"github.com/kbukum/svckit/errors"
	"github.com/kbukum/svckit/observability"
)

func TestResolveInitializedRunsOnce(t *testing.T) {
	svc := &initService{}
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)
	ctx := context.Background()

	first, err := c.ResolveInitialized(ctx, Name("svc"))
	if err != nil {
		t.Fatalf("ResolveInitialized failed: %v", err)
	}
	second, err := c.ResolveInitialized(ctx, Name("svc"))
	if err != nil {
		t.Fatalf("ResolveInitialized failed: %v", err)
	}
	if first != second || first != svc {
		t.Error("expected the registered instance both times")
	}
	if svc.Calls() != 1 {
		t.Errorf("expected one initialization, got %d", svc.Calls())
	}
	if !c.ResolveInitializedAsync(ctx, Name("svc")).Ready() {
		t.Error("expected an initialized instance to complete immediately")
	}
}

func TestResolveInitializedConcurrentCallersJoin(t *testing.T) {
	svc := &initService{release: make(chan struct{}), started: make(chan struct{}, 1)}
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.ResolveInitialized(ctx, Name("svc"))
		}(i)
	}

	<-svc.started
	close(svc.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d failed: %v", i, err)
		}
	}
	if svc.Calls() != 1 {
		t.Errorf("expected one initialization for concurrent callers, got %d", svc.Calls())
	}
}

func TestResolveInitializedFailureThenRetry(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	svc := &initService{fail: []error{cause}}
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)
	ctx := context.Background()

	_, err := c.ResolveInitialized(ctx, Name("svc"))
	if !errors.Is(err, ErrInitializationFailed) {
		t.Fatalf("expected ErrInitializationFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected the initializer's error as cause")
	}
	appErr, _ := errors.AsAppError(err)
	if !appErr.Retryable {
		t.Error("expected initialization failures to be retryable")
	}
	if svc.IsInitialized() {
		t.Error("expected the instance to stay uninitialized")
	}

	// The instance stays cached; the next call is a new attempt.
	cached, _ := c.Resolve(Name("svc"))
	if cached != svc {
		t.Error("expected the instance to remain cached after a failed initialization")
	}
	if _, err := c.ResolveInitialized(ctx, Name("svc")); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if svc.Calls() != 2 {
		t.Errorf("expected two attempts, got %d", svc.Calls())
	}
}

func TestResolveInitializedCancelStopsWaitingOnly(t *testing.T) {
	svc := &initService{release: make(chan struct{}), started: make(chan struct{}, 1)}
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.ResolveInitialized(ctx, Name("svc"))
		done <- err
	}()
	<-svc.started
	cancel()
	if err := <-done; !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(svc.release)
	if _, err := c.ResolveInitialized(context.Background(), Name("svc")); err != nil {
		t.Fatalf("expected the started initialization to complete, got %v", err)
	}
	if svc.Calls() != 1 {
		t.Errorf("expected the canceled initialization to keep running, got %d calls", svc.Calls())
	}
}

func TestResolveInitializedPlainInstance(t *testing.T) {
	b := newTestBuilder()
	b.Instance(&plainService{name: "p"}, Name("plain"))
	c := mustBuild(t, b)

	v, err := ResolveInitialized[*plainService](context.Background(), c, Name("plain"))
	if err != nil || v.name != "p" {
		t.Errorf("expected plain instance, got %v, %v", v, err)
	}
	if _, err := c.ResolveInitialized(context.Background(), Name("missing")); !errors.Is(err, ErrUnknownService) {
		t.Errorf("expected ErrUnknownService, got %v", err)
	}
}

func TestDisposeIsExhaustive(t *testing.T) {
	var log []string
	syncSvc := &syncRecorder{recorder{name: "sync", log: &log}}
	closer := &closerRecorder{recorder{name: "closer", log: &log}}
	async := &asyncRecorder{recorder{name: "async", log: &log}}

	b := newTestBuilder()
	b.Instance(syncSvc, Name("sync"))
	b.Instance(closer, Name("closer"))
	b.Instance(async, Name("async"))
	b.Instance(&plainService{}, Name("plain"))
	b.Instance(&syncRecorder{recorder{name: "unresolved", log: &log}}, Name("unresolved"))
	c := mustBuild(t, b)

	for _, k := range []Key{Name("sync"), Name("closer"), Name("async"), Name("plain")} {
		if _, err := c.Resolve(k); err != nil {
			t.Fatalf("Resolve %s failed: %v", k, err)
		}
	}

	if err := c.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	want := []string{"async", "closer", "sync"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("disposal log = %v, want %v", log, want)
	}
}

func TestDisposeReverseResolutionOrder(t *testing.T) {
	var log []string
	type db struct{ *syncRecorder }
	type repo struct{ *syncRecorder }

	b := newTestBuilder()
	b.ConstructorInject(func() *db { return &db{&syncRecorder{recorder{name: "db", log: &log}}} })
	b.ConstructorInject(func(*db) *repo { return &repo{&syncRecorder{recorder{name: "repo", log: &log}}} })
	c := mustBuild(t, b)

	if _, err := c.Resolve(TypeKey[*repo]()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := c.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	want := []string{"repo", "db"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("disposal order = %v, want %v", log, want)
	}
}

func TestDisposeSharedInstanceOnce(t *testing.T) {
	var log []string
	shared := &closerRecorder{recorder{name: "shared", log: &log}}
	b := newTestBuilder()
	b.Instance(shared, Name("a"))
	b.Instance(shared, Name("b"))
	c := mustBuild(t, b)
	c.Resolve(Name("a"))
	c.Resolve(Name("b"))

	if err := c.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if len(log) != 1 {
		t.Errorf("expected a single disposal, got %v", log)
	}
}

// valueDisposer is released through a value receiver, so equal copies are
// separate objects.
type valueDisposer struct {
	name string
	log  *[]string
}

func (v valueDisposer) Dispose() error {
	*v.log = append(*v.log, v.name)
	return nil
}

func TestDisposeEqualValuesSeparately(t *testing.T) {
	var log []string
	b := newTestBuilder()
	b.Instance(valueDisposer{name: "pool", log: &log}, Name("primary"))
	b.Instance(valueDisposer{name: "pool", log: &log}, Name("replica"))
	c := mustBuild(t, b)
	c.Resolve(Name("primary"))
	c.Resolve(Name("replica"))

	if err := c.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if len(log) != 2 {
		t.Errorf("expected each registration to be disposed, got %v", log)
	}
}

func TestDisposeAggregatesFailures(t *testing.T) {
	var log []string
	b := newTestBuilder()
	b.Instance(&syncRecorder{recorder{name: "a", log: &log, err: stderrors.New("a failed")}}, Name("a"))
	b.Instance(&closerRecorder{recorder{name: "b", log: &log}}, Name("b"))
	b.Instance(&asyncRecorder{recorder{name: "c", log: &log, err: stderrors.New("c failed")}}, Name("c"))
	c := mustBuild(t, b)
	for _, k := range []string{"a", "b", "c"} {
		c.Resolve(Name(k))
	}

	err := c.Dispose(context.Background())
	if !errors.Is(err, ErrDisposalFailed) {
		t.Fatalf("expected ErrDisposalFailed, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("expected 2 aggregated failures, got %d: %v", n, err)
	}
	if len(log) != 3 {
		t.Errorf("expected every instance to be attempted, got %v", log)
	}
}

func TestDisposeRejectsLaterUse(t *testing.T) {
	b := newTestBuilder()
	b.Instance(&Config{}, Name("Config"))
	b.Instance(&initService{}, Name("svc"))
	c := mustBuild(t, b)
	c.Resolve(Name("Config"))

	ctx := context.Background()
	if err := c.Dispose(ctx); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if !c.Disposed() {
		t.Error("expected Disposed to report true")
	}
	if _, err := c.Resolve(Name("Config")); !errors.Is(err, ErrContainerDisposed) {
		t.Errorf("expected ErrContainerDisposed from Resolve, got %v", err)
	}
	if _, err := c.ResolveInitialized(ctx, Name("svc")); !errors.Is(err, ErrContainerDisposed) {
		t.Errorf("expected ErrContainerDisposed from ResolveInitialized, got %v", err)
	}
	if _, ok := c.TryResolve(Name("Config")); ok {
		t.Error("expected TryResolve to report false after disposal")
	}
	if err := c.Dispose(ctx); err != nil {
		t.Errorf("expected a second Dispose to be a no-op, got %v", err)
	}
	if len(c.Resolved()) != 0 {
		t.Error("expected the cache to be cleared")
	}
}

func TestDisposeWaitsForInitialization(t *testing.T) {
	var log []string
	svc := &struct {
		*initService
		*syncRecorder
	}{
		&initService{release: make(chan struct{}), started: make(chan struct{}, 1)},
		&syncRecorder{recorder{name: "svc", log: &log}},
	}
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)

	f := c.ResolveInitializedAsync(context.Background(), Name("svc"))
	<-svc.started

	disposed := make(chan error, 1)
	go func() { disposed <- c.Dispose(context.Background()) }()

	select {
	case <-disposed:
		t.Fatal("expected Dispose to wait for the in-flight initialization")
	case <-time.After(20 * time.Millisecond):
	}
	close(svc.release)

	if err := <-disposed; err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if !f.Ready() {
		t.Error("expected initialization to have finished before disposal")
	}
	if len(log) != 1 {
		t.Errorf("expected instance to be disposed once, got %v", log)
	}
}

func TestDisposeGivesUpWaitingWhenContextEnds(t *testing.T) {
	svc := &initService{release: make(chan struct{}), started: make(chan struct{}, 1)}
	defer close(svc.release)
	b := newTestBuilder()
	b.Instance(svc, Name("svc"))
	c := mustBuild(t, b)

	c.ResolveInitializedAsync(context.Background(), Name("svc"))
	<-svc.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.Dispose(ctx); !errors.IsCode(err, errors.ErrCodeTimeout) {
		t.Errorf("expected a timeout error, got %v", err)
	}
}

func TestContainerRecordsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	inst, err := observability.NewInstruments(tp, mp)
	if err != nil {
		t.Fatalf("NewInstruments failed: %v", err)
	}

	b := newTestBuilder(WithInstruments(inst))
	b.Class(TypeOf[*Config]())
	b.Instance(&initService{}, Name("svc"))
	c := mustBuild(t, b)
	ctx := context.Background()

	c.Resolve(TypeKey[*Config]())
	if _, err := c.ResolveInitialized(ctx, Name("svc")); err != nil {
		t.Fatalf("ResolveInitialized failed: %v", err)
	}
	if err := c.Dispose(ctx); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[m.Name] += dp.Value
				}
			}
		}
	}
	if got["di.resolutions"] != 2 {
		t.Errorf("expected 2 resolutions, got %d", got["di.resolutions"])
	}
	if got["di.initializations"] != 1 {
		t.Errorf("expected 1 initialization, got %d", got["di.initializations"])
	}

	names := map[string]bool{}
	for _, s := range spans.Ended() {
		names[s.Name()] = true
	}
	if !names[observability.SpanInitialize] || !names[observability.SpanDispose] {
		t.Errorf("expected initialize and dispose spans, got %v", names)
	}
}

func TestNoopInstruments(t *testing.T) {
	inst, err := observability.NewInstruments(sdktrace.NewTracerProvider(), noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewInstruments failed: %v", err)
	}
	b := newTestBuilder(WithInstruments(inst))
	b.Instance(1, Name("one"))
	c := mustBuild(t, b)
	if _, err := c.Resolve(Name("one")); err != nil {
		t.Errorf("Resolve failed: %v", err)
	}
}
