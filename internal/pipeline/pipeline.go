package pipeline

import (
	"context"
	"fmt"
	"time"

	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/parsererror"
)

// Reasons recorded for stages that did not run
const (
	SkipBudgetExhausted = "budget_exhausted"
	SkipCancelled       = "cancelled"
	SkipEarlyExit       = "early_exit"
	SkipDisabled        = "disabled"
)

type stageFunc func(*AnalysisContext) stageResult

type stageDef struct {
	name Stage
	run  stageFunc
}

// Pipeline runs the extraction stages. It holds no per-call state and is
// safe for concurrent use.
type Pipeline struct {
	sink   EventSink
	now    func() time.Time
	stages []stageDef
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock used for the processing budget.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New returns a pipeline emitting diagnostics to sink. A nil sink discards them.
func New(sink EventSink, opts ...Option) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	p := &Pipeline{
		sink: sink,
		now:  time.Now,
		stages: []stageDef{
			{StageExact, exactStage},
			{StageFlexible, flexibleStage},
			{StageHeuristic, heuristicStage},
			{StageFallback, fallbackStage},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run extracts items from actx. It always returns a result: a stage that
// fails is recorded and skipped, and a run that finds nothing returns an
// empty result with confidence 0.
func (p *Pipeline) Run(ctx context.Context, actx *AnalysisContext) models.ParseResult {
	start := p.now()
	opts := actx.Options

	var (
		best       *stageResult
		fallback   *stageResult
		attempts   []models.StageAttempt
		stopReason string
	)

	for _, st := range p.stages {
		if stopReason != "" {
			attempts = append(attempts, p.skip(st.name, stopReason, start))
			continue
		}
		if st.name == StageFallback && !opts.FallbackEnabled {
			attempts = append(attempts, p.skip(st.name, SkipDisabled, start))
			continue
		}
		if reason := p.interrupted(ctx, start, opts); reason != "" {
			attempts = append(attempts, p.skip(st.name, reason, start))
			continue
		}

		res, attempt := p.runStage(actx, st, start)
		attempts = append(attempts, attempt)
		if attempt.Error != "" {
			continue
		}
		if st.name == StageFallback {
			fallback = &res
		}

		if res.confidence >= opts.ConfidenceThreshold && len(res.items) > 0 &&
			(best == nil || res.confidence > best.confidence) {
			best = &res
		}
		if res.confidence >= opts.EarlyExitConfidence && len(res.items) > 0 {
			p.sink.Emit(Event{Type: EventEarlyExit, Stage: st.name, Confidence: res.confidence, Elapsed: p.now().Sub(start)})
			stopReason = SkipEarlyExit
		}
	}

	// Nothing met the threshold: the fallback result stands, running it now
	// if it has not run yet.
	fallbackUsed := best != nil && best.stage == StageFallback
	if best == nil && opts.FallbackEnabled {
		if fallback == nil {
			p.sink.Emit(Event{Type: EventFallbackForced, Stage: StageFallback, Elapsed: p.now().Sub(start)})
			res, attempt := p.runStage(actx, stageDef{StageFallback, fallbackStage}, start)
			attempts = replaceAttempt(attempts, attempt)
			if attempt.Error == "" {
				fallback = &res
			}
		}
		best = fallback
		fallbackUsed = true
	}

	meta := models.ResultMetadata{
		StoreType:         actx.StoreType,
		FallbackUsed:      fallbackUsed,
		PatternsAttempted: attempts,
		PrimaryMethod:     models.MethodPattern,
	}

	result := models.EmptyResult()
	if best != nil && len(best.items) > 0 {
		result = result.WithItems(best.items)
		result.PatternID = best.patternID
		meta.PatternUsed = string(best.stage)
	}
	result.Success = len(result.Items) > 0
	meta.ProcessingTimeMS = p.now().Sub(start).Milliseconds()
	result.Metadata = meta
	return result
}

// interrupted reports why no further stage may start, or "".
func (p *Pipeline) interrupted(ctx context.Context, start time.Time, opts Options) string {
	if ctx.Err() != nil {
		return SkipCancelled
	}
	if opts.MaxProcessingTime > 0 && p.now().Sub(start) >= opts.MaxProcessingTime {
		return SkipBudgetExhausted
	}
	return ""
}

func (p *Pipeline) skip(stage Stage, reason string, start time.Time) models.StageAttempt {
	p.sink.Emit(Event{Type: EventStageSkipped, Stage: stage, Reason: reason, Elapsed: p.now().Sub(start)})
	return models.StageAttempt{Stage: string(stage), SkipReason: reason}
}

// runStage runs one stage, turning a panic into a StageError.
func (p *Pipeline) runStage(actx *AnalysisContext, st stageDef, start time.Time) (res stageResult, attempt models.StageAttempt) {
	stageStart := p.now()
	attempt = models.StageAttempt{Stage: string(st.name), Attempted: true}

	defer func() {
		attempt.DurationMS = p.now().Sub(stageStart).Milliseconds()
		if r := recover(); r != nil {
			err := &parsererror.StageError{Stage: string(st.name), Err: fmt.Errorf("panic: %v", r)}
			res = stageResult{stage: st.name}
			attempt.Error = err.Error()
			p.sink.Emit(Event{Type: EventStageFailed, Stage: st.name, Err: err, Elapsed: p.now().Sub(start)})
			return
		}
		attempt.ItemsFound = len(res.items)
		attempt.Confidence = res.confidence
		attempt.PatternID = res.patternID
		p.sink.Emit(Event{
			Type:       EventStageCompleted,
			Stage:      st.name,
			ItemsFound: len(res.items),
			Confidence: res.confidence,
			PatternID:  res.patternID,
			Elapsed:    p.now().Sub(start),
		})
	}()

	res = st.run(actx)
	return res, attempt
}

// replaceAttempt swaps the record of the same stage, or appends it.
func replaceAttempt(attempts []models.StageAttempt, a models.StageAttempt) []models.StageAttempt {
	for idx := range attempts {
		if attempts[idx].Stage == a.Stage {
			attempts[idx] = a
			return attempts
		}
	}
	return append(attempts, a)
}
