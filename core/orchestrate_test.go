package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingSleep captures retry delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func testOrchestrator(annotator contract.Annotator, workers int) (*Orchestrator, *recordingSleep) {
	rec := &recordingSleep{}
	return &Orchestrator{
		Annotator: annotator,
		Workers:   workers,
		Policy: contract.RetryPolicy{
			MaxRetries:     3,
			InitialBackoff: 10 * time.Millisecond,
			Multiplier:     2,
			MaxBackoff:     time.Second,
			RequestTimeout: time.Second,
		},
		Sleep: rec.sleep,
	}, rec
}

func sources(paths ...string) []schema.SourceFile {
	files := make([]schema.SourceFile, len(paths))
	for i, p := range paths {
		files[i] = schema.SourceFile{Path: p, Content: []byte("fn " + p + "() {}\n")}
	}
	return files
}

func analysisFor(name string) *schema.AIAnalysis {
	return &schema.AIAnalysis{MainFunctions: []string{name}, Complexity: "Low"}
}

func TestAnalyzeFailureIsolation(t *testing.T) {
	defer goleak.VerifyNone(t)

	ann := &contract.MockAnnotator{}
	ann.On("Annotate", mock.Anything, "bad.rs", mock.Anything).
		Return(nil, &schema.CallError{Kind: schema.FailureClient, StatusCode: 400, Err: errors.New("bad request")})
	ann.On("Annotate", mock.Anything, mock.Anything, mock.Anything).Return(analysisFor("ok"), nil)

	o, rec := testOrchestrator(ann, 3)
	outcomes := o.Analyze(context.Background(), sources("a.rs", "b.rs", "bad.rs", "c.rs", "d.rs"))

	require.Len(t, outcomes, 5)
	var ok, failed int
	for _, out := range outcomes {
		switch {
		case out.Failure != nil:
			failed++
			assert.Equal(t, "bad.rs", out.Path)
			assert.Equal(t, schema.FailureClient, out.Failure.Kind)
			assert.Equal(t, 1, out.Attempts)
		case out.Analysis != nil:
			ok++
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, 1, failed)
	assert.Empty(t, rec.delays, "permanent failures are not retried")
}

func TestAnalyzeParseErrorVersusTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	ann := &contract.MockAnnotator{}
	ann.On("Annotate", mock.Anything, "malformed.rs", mock.Anything).
		Return(nil, &schema.CallError{Kind: schema.FailureParse, Err: errors.New("invalid character 'x'")})
	ann.On("Annotate", mock.Anything, "slow.rs", mock.Anything).
		Return(nil, &schema.CallError{Kind: schema.FailureTimeout, Err: context.DeadlineExceeded})

	o, rec := testOrchestrator(ann, 2)
	outcomes := OutcomesByPath(o.Analyze(context.Background(), sources("malformed.rs", "slow.rs")))

	malformed := outcomes["malformed.rs"]
	require.NotNil(t, malformed.Failure)
	assert.Equal(t, schema.FailureParse, malformed.Failure.Kind)
	assert.Contains(t, malformed.Failure.Message, "parse error")
	assert.Equal(t, 1, malformed.Attempts)
	ann.AssertNumberOfCalls(t, "Annotate", 1+4)

	slow := outcomes["slow.rs"]
	require.NotNil(t, slow.Failure)
	assert.Equal(t, schema.FailureTimeout, slow.Failure.Kind)
	assert.Equal(t, 4, slow.Attempts, "one call plus three retries")
	assert.Equal(t, 4, slow.Failure.Attempts)
	assert.Len(t, rec.delays, 3)
}

// flakyAnnotator fails a fixed number of times per path before succeeding.
type flakyAnnotator struct {
	mu       sync.Mutex
	failures int
	calls    map[string]int
	err      *schema.CallError
}

func (f *flakyAnnotator) Annotate(_ context.Context, path string, _ []byte) (*schema.AIAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	if f.calls[path] <= f.failures {
		return nil, f.err
	}
	return analysisFor(path), nil
}

func (f *flakyAnnotator) Summarize(context.Context, []schema.FileRecord) (*schema.ProjectInsights, error) {
	return nil, errors.New("not used")
}

func (f *flakyAnnotator) Model() string { return "flaky" }

func TestAnalyzeRetriesThenSucceeds(t *testing.T) {
	defer goleak.VerifyNone(t)

	ann := &flakyAnnotator{
		failures: 2,
		calls:    map[string]int{},
		err:      &schema.CallError{Kind: schema.FailureRateLimit, StatusCode: 429, RetryAfter: 500 * time.Millisecond, Err: errors.New("slow down")},
	}
	o, rec := testOrchestrator(ann, 1)
	o.Jitter = 0

	outcomes := o.Analyze(context.Background(), sources("a.rs"))

	require.Len(t, outcomes, 1)
	assert.NotNil(t, outcomes[0].Analysis)
	assert.Nil(t, outcomes[0].Failure)
	assert.Equal(t, 3, outcomes[0].Attempts)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, 500 * time.Millisecond}, rec.delays, "retry-after raises both delays")
}

func TestAnalyzeSkipAI(t *testing.T) {
	ann := &contract.MockAnnotator{}
	o, _ := testOrchestrator(ann, 2)
	o.SkipAI = true

	files := sources("a.rs", "b.rs")
	files = append(files, schema.SourceFile{Path: "broken.rs", Err: errors.New("permission denied")})
	outcomes := o.Analyze(context.Background(), files)

	require.Len(t, outcomes, 3)
	for _, out := range outcomes[:2] {
		assert.Nil(t, out.Analysis)
		assert.Nil(t, out.Failure)
		assert.False(t, out.Skipped)
	}
	require.NotNil(t, outcomes[2].Failure)
	assert.Equal(t, schema.FailureIO, outcomes[2].Failure.Kind)
	ann.AssertNotCalled(t, "Annotate", mock.Anything, mock.Anything, mock.Anything)
}

// blockingAnnotator cancels the run on its first call and then waits for cancellation.
type blockingAnnotator struct {
	cancel  context.CancelFunc
	started atomic.Int32
}

func (b *blockingAnnotator) Annotate(ctx context.Context, _ string, _ []byte) (*schema.AIAnalysis, error) {
	b.started.Add(1)
	b.cancel()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingAnnotator) Summarize(context.Context, []schema.FileRecord) (*schema.ProjectInsights, error) {
	return nil, nil
}

func (b *blockingAnnotator) Model() string { return "blocking" }

func TestAnalyzeCancellationSkipsUnstartedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ann := &blockingAnnotator{cancel: cancel}

	o, _ := testOrchestrator(ann, 1)
	outcomes := o.Analyze(ctx, sources("a.rs", "b.rs", "c.rs", "d.rs"))

	require.Len(t, outcomes, 4)
	assert.Equal(t, int32(1), ann.started.Load())

	first := outcomes[0]
	require.NotNil(t, first.Failure)
	assert.Equal(t, schema.FailureCancelled, first.Failure.Kind)
	for _, out := range outcomes[1:] {
		assert.True(t, out.Skipped, "%s was never started", out.Path)
		assert.Nil(t, out.Failure)
		assert.Nil(t, out.Analysis)
	}
}

func TestAnalyzeCancelledDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ann := &contract.MockAnnotator{}
	ann.On("Annotate", mock.Anything, "a.rs", mock.Anything).
		Return(nil, &schema.CallError{Kind: schema.FailureServer, StatusCode: 502, Err: errors.New("bad gateway")})

	o, _ := testOrchestrator(ann, 1)
	o.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	outcomes := o.Analyze(ctx, sources("a.rs"))
	require.NotNil(t, outcomes[0].Failure)
	assert.Equal(t, schema.FailureCancelled, outcomes[0].Failure.Kind)
	assert.Equal(t, 1, outcomes[0].Attempts)
}

func TestAnalyzeBoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inflight, peak atomic.Int32
	ann := &contract.MockAnnotator{}
	ann.On("Annotate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			n := inflight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inflight.Add(-1)
		}).
		Return(analysisFor("x"), nil)

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = string(rune('a'+i)) + ".rs"
	}
	o, _ := testOrchestrator(ann, 3)
	outcomes := o.Analyze(context.Background(), sources(paths...))

	assert.Len(t, outcomes, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	for i, out := range outcomes {
		assert.Equal(t, paths[i], out.Path, "outcomes keep input order")
		assert.NotNil(t, out.Analysis)
	}
}

func TestAnalyzeNilAnalysisIsParseFailure(t *testing.T) {
	ann := &contract.MockAnnotator{}
	ann.On("Annotate", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	o, _ := testOrchestrator(ann, 1)
	outcomes := o.Analyze(context.Background(), sources("a.rs"))
	require.NotNil(t, outcomes[0].Failure)
	assert.Equal(t, schema.FailureParse, outcomes[0].Failure.Kind)
}
