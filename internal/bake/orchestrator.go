package bake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

const DefaultTimeout = 10 * time.Minute

var ErrNoPlayableClips = errors.New("no playable clips to bake")

// RefResolver rewrites a clip's media ref into one the remote compositor
// can fetch (engine-local paths become absolute URLs). Identity when nil.
type RefResolver func(ref string) string

// Orchestrator runs bake jobs: insert pending, flip to running, call the
// compositor, record exactly one of output ref or failure reason. Every
// job runs under its own cancellable, deadline-bound context descended
// from the orchestrator's root, so engine teardown cancels in-flight
// bakes instead of orphaning them.
type Orchestrator struct {
	logger   *slog.Logger
	client   studio.Client
	repo     Repository
	timeout  time.Duration
	resolve  RefResolver
	onUpdate func(*Job)

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewOrchestrator(client studio.Client, repo Repository, timeout time.Duration, resolve RefResolver, logger *slog.Logger) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if resolve == nil {
		resolve = func(ref string) string { return ref }
	}
	root, stop := context.WithCancel(context.Background())
	return &Orchestrator{
		logger:  logger,
		client:  client,
		repo:    repo,
		timeout: timeout,
		resolve: resolve,
		root:    root,
		stop:    stop,
		cancels: make(map[string]context.CancelFunc),
	}
}

// SetOnUpdate installs the listener fired after every job status change.
// Wire-up only; call before the first Start.
func (o *Orchestrator) SetOnUpdate(fn func(*Job)) {
	o.onUpdate = fn
}

// StartSceneBake bakes an already-persisted scene by reference.
func (o *Orchestrator) StartSceneBake(ctx context.Context, sceneID string, cfg Config) (*Job, error) {
	cfg = cfg.withDefaults()
	job := &Job{
		ID:      uuid.NewString(),
		Mode:    ModeByReference,
		SceneID: sceneID,
		Config:  cfg,
		Status:  JobStatusPending,
	}
	settings := cfg.settings()
	return o.launch(ctx, job, func(jobCtx context.Context) (*studio.BakeResult, error) {
		return o.client.BakeScene(jobCtx, sceneID, settings)
	})
}

// StartClipBake bakes an ad-hoc sequence by value. Unplayable members are
// excluded from the request; a sequence with nothing playable is rejected.
func (o *Orchestrator) StartClipBake(ctx context.Context, clips timeline.Sequence, cfg Config) (*Job, error) {
	cfg = cfg.withDefaults()
	payload := o.buildClips(clips, cfg)
	if len(payload) == 0 {
		return nil, ErrNoPlayableClips
	}

	job := &Job{
		ID:        uuid.NewString(),
		Mode:      ModeByValue,
		Config:    cfg,
		ClipCount: len(payload),
		Status:    JobStatusPending,
	}
	settings := cfg.settings()
	return o.launch(ctx, job, func(jobCtx context.Context) (*studio.BakeResult, error) {
		return o.client.BakeClips(jobCtx, payload, settings)
	})
}

func (o *Orchestrator) Get(ctx context.Context, id string) (*Job, error) {
	return o.repo.GetJob(ctx, id)
}

func (o *Orchestrator) List(ctx context.Context, limit int) ([]*Job, error) {
	return o.repo.ListJobs(ctx, limit)
}

// Cancel aborts an in-flight job. Finished jobs are unaffected.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Close cancels every in-flight bake and waits for their final status
// writes to land.
func (o *Orchestrator) Close() {
	o.stop()
	o.wg.Wait()
}

func (o *Orchestrator) buildClips(clips timeline.Sequence, cfg Config) []studio.BakeClip {
	out := make([]studio.BakeClip, 0, len(clips))
	for _, c := range clips {
		if !c.Playable() {
			o.logger.Warn("excluding unplayable clip from bake", "clip_id", c.ID, "effective", c.EffectiveDuration())
			continue
		}
		bc := studio.BakeClip{
			MediaRef:  o.resolve(c.MediaRef),
			TrimStart: c.TrimStart,
			TrimEnd:   c.TrimEnd,
		}
		if cfg.IncludeAudio {
			if c.AudioRef != "" {
				bc.AudioRef = o.resolve(c.AudioRef)
			}
			bc.AudioTrimStart = c.AudioTrimStart
			bc.AudioTrimEnd = c.AudioTrimEnd
			bc.AudioGain = c.AudioGain
		}
		out = append(out, bc)
	}
	return out
}

// launch records the job as pending and runs the compositor call in the
// background. The passed request context only covers the insert; the bake
// itself lives on the orchestrator's root so it survives the HTTP request
// that started it.
func (o *Orchestrator) launch(ctx context.Context, job *Job, run func(context.Context) (*studio.BakeResult, error)) (*Job, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := o.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create bake job: %w", err)
	}
	o.logger.Info("bake job created", "job_id", job.ID, "mode", job.Mode, "scene_id", job.SceneID, "clip_count", job.ClipCount)

	jobCtx, cancel := context.WithTimeout(o.root, o.timeout)
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.cancels, job.ID)
			o.mu.Unlock()
			cancel()
		}()

		o.setStatus(job.ID, JobStatusRunning, "", "")

		result, err := run(jobCtx)
		switch {
		case err != nil:
			reason := err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				reason = fmt.Sprintf("bake timed out after %s", o.timeout)
			} else if errors.Is(err, context.Canceled) {
				reason = "bake cancelled"
			}
			o.logger.Warn("bake failed", "job_id", job.ID, "error", err)
			o.setStatus(job.ID, JobStatusFailed, "", reason)
		case result.Success:
			o.logger.Info("bake completed", "job_id", job.ID, "output_ref", result.OutputRef)
			o.setStatus(job.ID, JobStatusCompleted, result.OutputRef, "")
		default:
			reason := result.Reason
			if reason == "" {
				reason = "bake failed"
			}
			o.logger.Warn("bake rejected by compositor", "job_id", job.ID, "reason", reason)
			o.setStatus(job.ID, JobStatusFailed, "", reason)
		}
	}()

	return job, nil
}

// setStatus writes outside the job context so outcomes are recorded even
// for cancelled jobs.
func (o *Orchestrator) setStatus(id, status, outputRef, reason string) {
	if err := o.repo.UpdateJobStatus(context.Background(), id, status, outputRef, reason); err != nil {
		o.logger.Error("failed to update bake job", "job_id", id, "status", status, "error", err)
		return
	}
	if o.onUpdate != nil {
		if job, err := o.repo.GetJob(context.Background(), id); err == nil && job != nil {
			o.onUpdate(job)
		}
	}
}
