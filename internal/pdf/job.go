package pdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"layout-translator/internal/guard"
	"layout-translator/internal/logger"
)

// Lifecycle is the translator's load and unload boundary.
type Lifecycle interface {
	Acquire(ctx context.Context) error
	EndJob(ctx context.Context)
}

// ProgressFunc is called after each page.
type ProgressFunc func(page, total int)

// Job runs the page pipeline over one document: pages are acquired,
// translated and rendered in order, then the document is saved. The
// translator is released when Run returns, whatever the outcome.
type Job struct {
	doc       Document
	acquirer  *Acquirer
	renderer  *Renderer
	lifecycle Lifecycle
	progress  ProgressFunc

	mu     sync.RWMutex
	status JobStatus
}

// NewJob wires a job. lifecycle may be nil.
func NewJob(doc Document, acquirer *Acquirer, renderer *Renderer, lifecycle Lifecycle) *Job {
	return &Job{
		doc:       doc,
		acquirer:  acquirer,
		renderer:  renderer,
		lifecycle: lifecycle,
		status:    JobStatus{Phase: PhaseIdle, TotalPages: doc.NumPages()},
	}
}

// SetProgressCallback registers fn for page completion events.
func (j *Job) SetProgressCallback(fn ProgressFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = fn
}

// Status returns a snapshot of the job state.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// updateStatus sets phase and message, deriving progress from page.
func (j *Job) updateStatus(phase JobPhase, page int, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !IsValidPhase(phase) {
		logger.Warn("invalid phase, defaulting to error", logger.String("phase", string(phase)))
		phase = PhaseError
	}
	j.status.Phase = phase
	j.status.Page = page
	j.status.Message = message
	if j.status.TotalPages > 0 {
		j.status.Progress = page * 100 / j.status.TotalPages
	}
	if phase == PhaseComplete {
		j.status.Progress = 100
	}
	if phase != PhaseError {
		j.status.Error = ""
	}
}

func (j *Job) fail(err error) error {
	j.mu.Lock()
	j.status.Phase = PhaseError
	j.status.Error = err.Error()
	j.status.Message = "translation failed"
	j.mu.Unlock()
	logger.Error("translation job failed", err)
	return err
}

func (j *Job) count(fn func(c *JobCounters)) {
	j.mu.Lock()
	fn(&j.status.Counters)
	j.mu.Unlock()
}

// Run processes every page and writes the result to output. Only
// cancellation, translator load and save failures are returned; everything
// page-local is logged and counted.
func (j *Job) Run(ctx context.Context, output string) (JobCounters, error) {
	start := time.Now()
	if j.lifecycle != nil {
		defer j.lifecycle.EndJob(context.WithoutCancel(ctx))
	}

	total := j.doc.NumPages()
	logger.Info("starting translation job", logger.Int("pages", total), logger.String("output", output))

	j.updateStatus(PhaseLoading, 0, "loading translator")
	if j.lifecycle != nil {
		if err := j.lifecycle.Acquire(ctx); err != nil {
			return j.Status().Counters, j.fail(fmt.Errorf("load translator: %w", err))
		}
	}

	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return j.Status().Counters, j.fail(NewPDFErrorWithPage(ErrCancelled, "job cancelled", page, err))
		}
		j.runPage(ctx, page, total)
	}

	j.updateStatus(PhaseSaving, total, "saving document")
	if err := j.doc.Save(output); err != nil {
		return j.Status().Counters, j.fail(err)
	}

	j.collectGuardStats()
	j.updateStatus(PhaseComplete, total, "translation complete")
	c := j.Status().Counters
	logger.Info("translation job complete",
		logger.Int("pages", c.Pages),
		logger.Int("regions", c.Regions),
		logger.Int("footers", c.Footers),
		logger.Int("accepted", c.Accepted),
		logger.Int("reverted", c.Reverted),
		logger.Int("substituted", c.Substituted),
		logger.Int("ocrPages", c.OCRPages),
		logger.Int("overflows", c.Overflows),
		logger.Int("pageFailures", c.PageFailures),
		logger.Duration("elapsed", time.Since(start)))
	return c, nil
}

func (j *Job) runPage(ctx context.Context, page, total int) {
	j.updateStatus(PhaseAcquiring, page-1, fmt.Sprintf("reading page %d/%d", page, total))
	pr := j.acquirer.Acquire(ctx, page)
	if pr.UsedOCR {
		j.count(func(c *JobCounters) { c.OCRPages++ })
	}

	j.updateStatus(PhaseTranslating, page-1, fmt.Sprintf("translating page %d/%d", page, total))
	var regions []Placement
	footers := pr.Footers
	if !pr.Empty() {
		regions, footers = j.renderer.Translate(ctx, pr)
	}

	j.updateStatus(PhaseRendering, page-1, fmt.Sprintf("rendering page %d/%d", page, total))
	w, err := j.doc.Page(page)
	if err != nil {
		logger.Warn("page skipped", logger.Int("page", page), logger.Err(err))
		j.count(func(c *JobCounters) {
			c.Pages++
			c.PageFailures++
		})
		j.notify(page, total)
		return
	}

	var res PageResult
	if pr.Empty() {
		if err := w.Finish(); err != nil {
			logger.Warn("page finish failed", logger.Int("page", page), logger.Err(err))
		}
	} else {
		res = j.renderer.Render(pr, regions, footers, w)
	}

	j.count(func(c *JobCounters) {
		c.Pages++
		c.Regions += res.Regions
		c.Footers += res.Footers
		c.Overflows += res.Overflows
		if res.Failures > 0 {
			c.PageFailures++
		}
	})
	j.notify(page, total)
}

func (j *Job) notify(page, total int) {
	j.mu.RLock()
	fn := j.progress
	j.mu.RUnlock()
	if fn != nil {
		fn(page, total)
	}
}

func (j *Job) collectGuardStats() {
	src, ok := j.renderer.tr.(interface{ Stats() guard.DispatchStats })
	if !ok {
		return
	}
	s := src.Stats()
	j.count(func(c *JobCounters) {
		c.Accepted = int(s.Accepted)
		c.Reverted = int(s.Reverted)
		c.Substituted = int(s.Substituted)
	})
}
