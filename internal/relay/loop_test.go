package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"paxgbot/internal/coingecko"
	"paxgbot/internal/fetcher"
	"paxgbot/internal/format"
	"paxgbot/internal/metrics"
	"paxgbot/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func sampleQuote() *fetcher.Quote {
	return &fetcher.Quote{Price: 2650.5, Change24h: -1.23, MarketCap: 3000000000}
}

func newTestLoop(f fetcher.Fetcher, p Publisher, opts ...Option) *Loop {
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	return New(f, format.New("PAXG", "usd"), p, opts...)
}

// waitRun waits for Run to return and fails the test if it does not
func waitRun(t *testing.T, done <-chan error, what string) {
	t.Helper()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return: %s", what)
	}
}

func TestNew_Defaults(t *testing.T) {
	l := New(testutil.NewMockFetcher("k", nil, nil), format.New("PAXG", "usd"), &testutil.MockPublisher{})

	if l.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", l.interval, DefaultInterval)
	}
	if l.retryDelay != DefaultRetryDelay {
		t.Errorf("retryDelay = %v, want %v", l.retryDelay, DefaultRetryDelay)
	}
	if l.State() != StateRunning {
		t.Errorf("State() = %v, want %v", l.State(), StateRunning)
	}
	if l.metrics != nil {
		t.Error("metrics set without WithMetrics")
	}
}

func TestLoop_Delay(t *testing.T) {
	l := newTestLoop(&testutil.MockFetcher{}, &testutil.MockPublisher{},
		WithInterval(5*time.Minute), WithRetryDelay(time.Minute))

	tests := []struct {
		outcome Outcome
		want    time.Duration
	}{
		{OutcomeSuccess, 5 * time.Minute},
		{OutcomeFetchFailed, 5 * time.Minute},
		{OutcomePublishFailed, 5 * time.Minute},
		{OutcomeUnexpectedError, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			if got := l.delay(tt.outcome); got != tt.want {
				t.Errorf("delay(%v) = %v, want %v", tt.outcome, got, tt.want)
			}
		})
	}
}

func TestRunOnce_Success(t *testing.T) {
	f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)
	p := &testutil.MockPublisher{}
	l := newTestLoop(f, p)

	if got := l.RunOnce(context.Background()); got != OutcomeSuccess {
		t.Errorf("RunOnce() = %v, want %v", got, OutcomeSuccess)
	}

	texts := p.Texts()
	if len(texts) != 1 {
		t.Fatalf("published %d messages, want 1", len(texts))
	}

	want := format.New("PAXG", "usd").Format(sampleQuote(), fixedNow)
	if texts[0] != want {
		t.Errorf("published %q, want %q", texts[0], want)
	}
	for _, part := range []string{"$2,650.50", "-1.23%", "$3,000,000,000"} {
		if !strings.Contains(texts[0], part) {
			t.Errorf("published %q, missing %q", texts[0], part)
		}
	}
}

func TestRunOnce_FetchFailurePublishesNotice(t *testing.T) {
	f := testutil.NewMockFetcher("fetcher:test:paxg", nil, fetcher.ClassifyHTTPError(http.StatusServiceUnavailable))
	p := &testutil.MockPublisher{}
	l := newTestLoop(f, p)

	if got := l.RunOnce(context.Background()); got != OutcomeFetchFailed {
		t.Errorf("RunOnce() = %v, want %v", got, OutcomeFetchFailed)
	}

	texts := p.Texts()
	if len(texts) != 1 || texts[0] != format.FailureNotice {
		t.Errorf("published %q, want [%q]", texts, format.FailureNotice)
	}
}

func TestRunOnce_FetchTimeoutPublishesNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	f := coingecko.NewPriceFetcher("pax-gold", "usd", server.URL, 50*time.Millisecond)

	tests := []struct {
		name      string
		delivered bool
		want      Outcome
	}{
		{"notice delivered", true, OutcomeFetchFailed},
		{"notice lost", false, OutcomePublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &testutil.MockPublisher{
				PublishFunc: func(ctx context.Context, text string) bool { return tt.delivered },
			}
			l := newTestLoop(f, p)

			if got := l.RunOnce(context.Background()); got != tt.want {
				t.Errorf("RunOnce() = %v, want %v", got, tt.want)
			}

			texts := p.Texts()
			if len(texts) != 1 || texts[0] != format.FailureNotice {
				t.Errorf("published %q, want [%q]", texts, format.FailureNotice)
			}
		})
	}
}

func TestRunOnce_PublishFailure(t *testing.T) {
	f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)
	p := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, text string) bool { return false },
	}
	l := newTestLoop(f, p)

	if got := l.RunOnce(context.Background()); got != OutcomePublishFailed {
		t.Errorf("RunOnce() = %v, want %v", got, OutcomePublishFailed)
	}
	if n := len(p.Texts()); n != 1 {
		t.Errorf("published %d messages, want 1 (no retry)", n)
	}
}

func TestRunOnce_RecoversPanic(t *testing.T) {
	t.Run("in fetcher", func(t *testing.T) {
		f := &testutil.MockFetcher{
			FetchFunc: func(ctx context.Context) (*fetcher.Quote, error) {
				panic("decoder exploded")
			},
		}
		p := &testutil.MockPublisher{}
		l := newTestLoop(f, p)

		if got := l.RunOnce(context.Background()); got != OutcomeUnexpectedError {
			t.Errorf("RunOnce() = %v, want %v", got, OutcomeUnexpectedError)
		}
		if n := len(p.Texts()); n != 0 {
			t.Errorf("published %d messages after a panic, want 0", n)
		}
	})

	t.Run("in publisher", func(t *testing.T) {
		f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)
		p := &testutil.MockPublisher{
			PublishFunc: func(ctx context.Context, text string) bool {
				panic(errors.New("nil transport"))
			},
		}
		l := newTestLoop(f, p)

		if got := l.RunOnce(context.Background()); got != OutcomeUnexpectedError {
			t.Errorf("RunOnce() = %v, want %v", got, OutcomeUnexpectedError)
		}
	})
}

func TestRunOnce_CancelledContext(t *testing.T) {
	f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)
	p := &testutil.MockPublisher{}
	l := newTestLoop(f, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := l.RunOnce(ctx); got != OutcomeInterrupted {
		t.Errorf("RunOnce() = %v, want %v", got, OutcomeInterrupted)
	}
	if f.Calls() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.Calls())
	}
	if n := len(p.Texts()); n != 0 {
		t.Errorf("published %d messages, want 0", n)
	}
}

func TestRunOnce_CancelledDuringFetchSkipsPublish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context) (*fetcher.Quote, error) {
			cancel()
			return nil, fetcher.NewNetworkError(ctx.Err())
		},
	}
	p := &testutil.MockPublisher{}
	l := newTestLoop(f, p)

	if got := l.RunOnce(ctx); got != OutcomeInterrupted {
		t.Errorf("RunOnce() = %v, want %v", got, OutcomeInterrupted)
	}
	if n := len(p.Texts()); n != 0 {
		t.Errorf("published %d messages after interrupt, want 0", n)
	}
}

func TestRun_InterruptDuringSleep(t *testing.T) {
	f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)

	published := make(chan struct{}, 1)
	p := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, text string) bool {
			published <- struct{}{}
			return true
		},
	}
	l := newTestLoop(f, p, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never published")
	}

	// let the loop reach its sleep
	time.Sleep(20 * time.Millisecond)
	cancel()

	waitRun(t, done, "after interrupt")

	if l.State() != StateStopped {
		t.Errorf("State() = %v, want %v", l.State(), StateStopped)
	}
	if f.Calls() != 1 {
		t.Errorf("fetcher called %d times, want 1", f.Calls())
	}
	if n := len(p.Texts()); n != 1 {
		t.Errorf("published %d messages, want 1", n)
	}
}

func TestRun_KeepsGoingAfterUnexpectedError(t *testing.T) {
	var calls atomic.Int32
	f := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context) (*fetcher.Quote, error) {
			if calls.Add(1) == 1 {
				panic("first cycle blows up")
			}
			return sampleQuote(), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, text string) bool {
			cancel()
			return true
		},
	}
	l := newTestLoop(f, p, WithInterval(time.Hour), WithRetryDelay(10*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitRun(t, done, "no retry after the unexpected error")

	if got := calls.Load(); got != 2 {
		t.Errorf("fetcher called %d times, want 2", got)
	}
	if n := len(p.Texts()); n != 1 {
		t.Errorf("published %d messages, want 1", n)
	}
	if l.State() != StateStopped {
		t.Errorf("State() = %v, want %v", l.State(), StateStopped)
	}
}

func TestRun_RepeatsOnInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := testutil.NewMockFetcher("fetcher:test:paxg", nil, errors.New("upstream down"))
	var published atomic.Int32
	p := &testutil.MockPublisher{
		PublishFunc: func(ctx context.Context, text string) bool {
			if published.Add(1) == 3 {
				cancel()
			}
			return false
		},
	}
	l := newTestLoop(f, p, WithInterval(5*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitRun(t, done, "three cycles never completed")

	if f.Calls() != 3 {
		t.Errorf("fetcher called %d times, want 3", f.Calls())
	}
	for _, text := range p.Texts() {
		if text != format.FailureNotice {
			t.Errorf("published %q, want %q", text, format.FailureNotice)
		}
	}
}

func TestRunOnce_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	f := testutil.NewMockFetcher("fetcher:test:paxg", sampleQuote(), nil)
	l := newTestLoop(f, &testutil.MockPublisher{}, WithMetrics(m))

	if got := l.RunOnce(context.Background()); got != OutcomeSuccess {
		t.Fatalf("RunOnce() = %v, want %v", got, OutcomeSuccess)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{`paxgbot_cycles_total{outcome="success"} 1`, "paxgbot_quote_price 2650.5"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{OutcomeSuccess.String(), "success"},
		{OutcomeFetchFailed.String(), "fetch_failed"},
		{OutcomePublishFailed.String(), "publish_failed"},
		{OutcomeUnexpectedError.String(), "unexpected_error"},
		{OutcomeInterrupted.String(), "interrupted"},
		{StateStopped.String(), "stopped"},
		{StateRunning.String(), "running"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("String() = %q, want %q", tt.got, tt.want)
		}
	}
}
