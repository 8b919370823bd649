package render

import (
	"context"
	"fmt"
	"time"

	"montage/internal/logging"
	"montage/internal/services"
)

// State is a pipeline position.
type State int

const (
	StateStart State = iota
	StateProbing
	StateSequencing
	StateConcatenating
	StateMuxing
	StateBurning
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateStart:         "start",
	StateProbing:       "probing",
	StateSequencing:    "sequencing",
	StateConcatenating: "concatenating",
	StateMuxing:        "muxing",
	StateBurning:       "burning",
	StateDone:          "done",
	StateFailed:        "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s is Done or Failed.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Progress approximates completion for a state, in percent.
func (s State) Progress() float64 {
	switch s {
	case StateProbing:
		return 5
	case StateSequencing:
		return 10
	case StateConcatenating:
		return 20
	case StateMuxing:
		return 55
	case StateBurning:
		return 75
	case StateDone:
		return 100
	default:
		return 0
	}
}

// Transition is delivered to observers on every state change.
type Transition struct {
	JobID string
	From  State
	To    State
	Err   error
	At    time.Time
}

// Observer receives pipeline transitions. It runs on the pipeline goroutine.
type Observer func(Transition)

type run struct {
	r        *Renderer
	job      *Job
	observer Observer
	state    State
}

func (p *run) advance(ctx context.Context, to State, err error) context.Context {
	from := p.state
	p.state = to
	if p.observer != nil {
		p.observer(Transition{JobID: p.job.ID, From: from, To: to, Err: err, At: time.Now()})
	}
	return services.WithStage(ctx, to.String())
}

// Run executes every stage for job. Intermediates are removed on every exit
// path; the output path is never removed once burning succeeds. No stage is
// retried.
func (r *Renderer) Run(ctx context.Context, job *Job, observer Observer) (result *MediaHandle, err error) {
	p := &run{r: r, job: job, observer: observer, state: StateStart}
	if err := job.validate(); err != nil {
		p.advance(ctx, StateFailed, err)
		return nil, err
	}
	logger := logging.WithContext(ctx, r.logger).With(logging.String("render_id", job.ID))
	started := time.Now()

	defer func() {
		r.cleanup(ctx, job)
		if err != nil {
			failedAt := p.state
			p.advance(ctx, StateFailed, err)
			logging.ErrorWithContext(logger, "render failed", "render_failed",
				logging.String(logging.FieldStage, failedAt.String()),
				logging.String("error_kind", services.Classify(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect engine diagnostics on the job record"),
			)
			return
		}
		p.advance(ctx, StateDone, nil)
		logger.Info("render completed",
			logging.String(logging.FieldEventType, "render_completed"),
			logging.String("output", job.OutputPath),
			logging.Duration("elapsed", time.Since(started)),
		)
	}()

	stageCtx := p.advance(ctx, StateProbing, nil)
	audio := NewMediaHandle(r.eng, job.AudioPath)
	target, err := audio.Duration(stageCtx)
	if err != nil {
		return nil, err
	}
	if target <= 0 {
		return nil, &ProbeError{Path: job.AudioPath, Err: fmt.Errorf("non-positive duration %.3fs", target)}
	}

	stageCtx = p.advance(ctx, StateSequencing, nil)
	playlist, err := r.BuildPlaylist(stageCtx, job.ClipPaths, target)
	if err != nil {
		return nil, err
	}

	stageCtx = p.advance(ctx, StateConcatenating, nil)
	joined, err := r.Concatenate(stageCtx, job, playlist)
	if err != nil {
		return nil, err
	}

	stageCtx = p.advance(ctx, StateMuxing, nil)
	muxed, err := r.AttachAudio(stageCtx, job, joined, audio, target)
	if err != nil {
		return nil, err
	}

	stageCtx = p.advance(ctx, StateBurning, nil)
	final, err := r.BurnSubtitles(stageCtx, job, muxed, job.SubtitlePath, job.OutputPath)
	if err != nil {
		return nil, err
	}
	return final, nil
}

// cleanup removes every recorded intermediate except the output path.
// Failures are logged and otherwise ignored.
func (r *Renderer) cleanup(ctx context.Context, job *Job) {
	logger := logging.WithContext(ctx, r.logger)
	for _, path := range job.Intermediates() {
		if path == job.OutputPath {
			continue
		}
		if err := removePartial(path); err != nil {
			logging.WarnWithContext(logger, "intermediate cleanup failed", "cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the file manually or wait for the retention sweep"),
				logging.String(logging.FieldImpact, "scratch space not reclaimed"),
			)
		}
	}
}
