package core

import (
	"context"
	"errors"
	"time"

	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// defaultJitter is the backoff randomization factor.
const defaultJitter = 0.5

// Orchestrator runs annotation requests over a bounded worker pool.
type Orchestrator struct {
	Annotator contract.Annotator
	Workers   int
	Policy    contract.RetryPolicy
	SkipAI    bool
	Jitter    float64

	// Sleep waits between retries. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator builds an orchestrator from the run configuration.
func NewOrchestrator(annotator contract.Annotator, cfg *contract.Config) *Orchestrator {
	return &Orchestrator{
		Annotator: annotator,
		Workers:   cfg.Workers,
		Policy:    cfg.Retry,
		SkipAI:    cfg.SkipAI || annotator == nil,
		Jitter:    defaultJitter,
		Sleep:     sleepContext,
	}
}

// Analyze returns one outcome per input file, in input order.
//
// Each worker writes only its own slot, so the slice needs no lock. Files that
// were not started when ctx was cancelled are marked Skipped. Files carrying a
// scan error fail with kind io without a request.
func (o *Orchestrator) Analyze(ctx context.Context, files []schema.SourceFile) []schema.FileOutcome {
	outcomes := make([]schema.FileOutcome, len(files))
	for i, f := range files {
		outcomes[i].Path = f.Path
	}

	var g errgroup.Group
	g.SetLimit(max(o.Workers, 1))

	for i := range files {
		f := files[i]
		if f.Err != nil {
			outcomes[i].Failure = &schema.FailureReason{Kind: schema.FailureIO, Message: f.Err.Error()}
			continue
		}
		if o.SkipAI {
			continue
		}
		if ctx.Err() != nil {
			outcomes[i].Skipped = true
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i].Skipped = true
				return nil
			}
			outcomes[i] = o.annotateFile(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if out.Skipped {
			contract.Logger().Debug("File skipped", zap.String("path", out.Path))
		}
	}
	return outcomes
}

// annotateFile drives the request state machine for one file until it is terminal.
func (o *Orchestrator) annotateFile(ctx context.Context, f schema.SourceFile) schema.FileOutcome {
	log := contract.Logger().With(zap.String("path", f.Path))
	schedule := newDelaySchedule(o.Policy, o.Jitter)
	state := RequestState{Phase: Pending}
	var analysis *schema.AIAnalysis

	for !state.Done() {
		var err error
		analysis, err = o.call(ctx, f)
		state = state.Next(classifyError(ctx, err), o.Policy.MaxRetries)

		if state.Phase != Retrying {
			continue
		}
		delay := schedule.next(state.Err.RetryAfter)
		log.Info("Retry scheduled",
			zap.Int("attempt", state.Attempts),
			zap.String("kind", string(state.Err.Kind)),
			zap.Duration("delay", delay))
		if err := o.sleep(ctx, delay); err != nil {
			state = state.Cancel(err)
		}
	}

	out := schema.FileOutcome{Path: f.Path, Attempts: state.Attempts}
	if state.Phase == Succeeded {
		out.Analysis = analysis
		return out
	}
	out.Failure = state.Err.Reason(state.Attempts)
	log.Warn("File analysis failed",
		zap.String("kind", string(out.Failure.Kind)),
		zap.Int("attempts", state.Attempts),
		zap.String("error", out.Failure.Message))
	return out
}

// call performs one request under the per-request timeout.
func (o *Orchestrator) call(ctx context.Context, f schema.SourceFile) (*schema.AIAnalysis, error) {
	callCtx := ctx
	if o.Policy.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.Policy.RequestTimeout)
		defer cancel()
	}
	analysis, err := o.Annotator.Annotate(callCtx, f.Path, f.Content)
	if err == nil && analysis == nil {
		err = &schema.CallError{Kind: schema.FailureParse, Err: errors.New("empty analysis")}
	}
	return analysis, err
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return o.Sleep(ctx, d)
}

// OutcomesByPath indexes outcomes for the merger.
func OutcomesByPath(outcomes []schema.FileOutcome) map[string]schema.FileOutcome {
	m := make(map[string]schema.FileOutcome, len(outcomes))
	for _, o := range outcomes {
		m[o.Path] = o
	}
	return m
}
