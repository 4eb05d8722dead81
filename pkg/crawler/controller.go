package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "peoplescraper/pkg/errors"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/retry"
	"peoplescraper/pkg/storage"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeBlocked   Outcome = "blocked"
	OutcomeFailed    Outcome = "failed"
)

// Result is what a run produced. Records and Files hold one entry per
// finalized target in iteration order.
type Result struct {
	RunID   string
	Outcome Outcome
	Records [][]models.EmployeeRecord
	Files   []string
	// Pending is the unfinished target when the run stopped early
	Pending *models.CrawlState
	Err     error
}

// Progress is the resumable position of a run.
type Progress struct {
	RunID       string
	TargetIndex int
	State       *models.CrawlState
	Files       []string
}

// Controller runs a whole crawl session against one browser.
type Controller struct {
	opts      Options
	extractor *Extractor
	logger    logger.Logger

	next    int
	state   *models.CrawlState
	records [][]models.EmployeeRecord
	files   []string

	// city whose filter is applied in the current browser session
	city    string
	cityURL string
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Browser == nil {
		return nil, errors.New("browser is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("storage manager is required")
	}
	if opts.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if err := opts.Selectors.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selectors: %w", err)
	}

	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	opts.Logger = opts.Logger.WithField("run_id", opts.RunID)
	opts = opts.withDefaults()

	c := &Controller{
		opts:   opts,
		logger: opts.Logger.WithField("component", "controller"),
	}
	c.extractor = NewExtractor(opts)
	c.extractor.onPage = func(*models.CrawlState) { c.progress() }
	return c, nil
}

// RunID identifies this run in logs and checkpoints.
func (c *Controller) RunID() string {
	return c.opts.RunID
}

// Restore continues from progress saved by an earlier process. Records of
// finalized targets are read back from their result files. A target that
// was blocked resumes where it stopped.
func (c *Controller) Restore(p Progress) error {
	records := make([][]models.EmployeeRecord, 0, len(p.Files))
	for _, path := range p.Files {
		r, err := storage.Load(path)
		if err != nil {
			return fmt.Errorf("failed to restore finalized results: %w", err)
		}
		records = append(records, r)
	}

	c.next = p.TargetIndex
	c.records = records
	c.files = append([]string(nil), p.Files...)
	c.state = p.State.Clone()
	if c.state != nil && c.state.Status == models.StatusBlocked {
		c.state.Status = models.StatusExtracting
	}

	fields := map[string]interface{}{
		"target_index": c.next,
		"finalized":    len(c.files),
	}
	if c.state != nil {
		fields["target"] = c.state.Target.String()
		fields["page"] = c.state.CurrentPage
	}
	c.logger.InfoWithFields("Restored crawl progress", fields)
	return nil
}

// Run crawls every (city, company) pair, cities outer and companies inner.
// Failures other than a block or a login failure restart the run up to
// the run retrier's bound; finished targets are not crawled again.
func (c *Controller) Run(ctx context.Context, cities, companies []string, pageLimit int) *Result {
	targets := models.Targets(cities, companies)
	logger.LogComponentStart(c.logger, "controller", map[string]interface{}{
		"targets":    len(targets),
		"page_limit": pageLimit,
		"start_at":   c.next,
	})
	start := time.Now()

	err := c.opts.RunRetrier.Do(ctx, "run", nil, func(attempt int) error {
		if attempt > 1 {
			c.logger.WarnWithFields("Reattempting data collection", map[string]interface{}{"attempt": attempt})
			c.city, c.cityURL = "", ""
		}
		return c.crawl(ctx, targets, pageLimit)
	})

	res := &Result{
		RunID:   c.opts.RunID,
		Records: c.records,
		Files:   c.files,
	}
	fields := map[string]interface{}{
		"targets_done": len(c.files),
		"targets":      len(targets),
		"duration":     time.Since(start).Round(time.Second).String(),
	}

	switch {
	case err == nil:
		res.Outcome = OutcomeCompleted
		c.logger.InfoWithFields("Data collection completed", fields)
	case errs.IsBlocked(err):
		res.Outcome = OutcomeBlocked
		res.Err = err
		res.Pending = c.state.Clone()
		c.progress()
		c.logger.ErrorWithFields("Data collection stopped: searches are blocked for a while", fields)
	default:
		c.emergencySave()
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) && exhausted.Op == "run" {
			err = errs.Wrap(errs.ErrorTypeRunFailure, "run", err)
		}
		res.Outcome = OutcomeFailed
		res.Err = err
		res.Pending = c.state.Clone()
		fields["error"] = err.Error()
		c.logger.ErrorWithFields("Failure to complete data collection", fields)
	}
	return res
}

func (c *Controller) crawl(ctx context.Context, targets []models.SearchTarget, pageLimit int) error {
	for c.next < len(targets) {
		target := targets[c.next]
		if c.state == nil || c.state.Target != target {
			c.state = models.NewCrawlState(target)
		}

		if c.state.Resumable() {
			if err := c.ensureLogin(ctx, target.City); err != nil {
				return err
			}
			c.logger.InfoWithFields("Resuming target", map[string]interface{}{
				"target": target.String(),
				"page":   c.state.CurrentPage,
			})
		} else {
			fresh := models.NewCrawlState(target)
			fresh.CheckpointPath = c.state.CheckpointPath
			c.state = fresh
			if err := c.prepare(ctx, target); err != nil {
				return err
			}
		}

		if _, err := c.extractor.GetEmployeesInfo(ctx, c.state, pageLimit); err != nil {
			return err
		}
		if err := c.finalize(); err != nil {
			return err
		}
	}
	return nil
}

// prepare gets the browser onto the first result page of target.
func (c *Controller) prepare(ctx context.Context, target models.SearchTarget) error {
	sel := c.opts.Selectors
	if c.city != target.City || c.cityURL == "" {
		if err := c.login(ctx, target.City); err != nil {
			return err
		}
		c.city, c.cityURL = target.City, ""
		if err := c.openPeopleSearch(ctx); err != nil {
			return err
		}
		if err := c.applyFilter(ctx, "city", sel.CityFilter, target.City); err != nil {
			return err
		}
		current, err := c.opts.Browser.CurrentURL(ctx)
		if err != nil {
			return errs.Wrap(errs.ErrorTypeTransientUI, "apply_filter", err)
		}
		c.cityURL = current
	} else if err := c.returnToCity(ctx); err != nil {
		return err
	}

	if err := c.applyFilter(ctx, "company", sel.CompanyFilter, target.Company); err != nil {
		return err
	}
	c.state.Status = models.StatusFiltered
	return nil
}

func (c *Controller) ensureLogin(ctx context.Context, city string) error {
	if c.city == city {
		return nil
	}
	if err := c.login(ctx, city); err != nil {
		return err
	}
	c.city, c.cityURL = city, ""
	return nil
}

func (c *Controller) finalize() error {
	state := c.state
	target := state.Target.String()

	if c.opts.Dedupe {
		before := len(state.Collected)
		state.Collected = models.Dedupe(state.Collected)
		if removed := before - len(state.Collected); removed > 0 {
			c.logger.InfoWithFields("Removed duplicate records", map[string]interface{}{
				"target":  target,
				"removed": removed,
			})
		}
	}

	path, err := c.opts.Storage.Save(state, true)
	if err != nil {
		return &errs.Error{Type: errs.ErrorTypePersistence, Op: "finalize", Target: target, Err: err}
	}
	state.Status = models.StatusDone

	c.records = append(c.records, state.Collected)
	c.files = append(c.files, path)
	logger.LogTargetComplete(c.logger, target, len(state.Collected), len(state.SkippedPages), path)

	c.next++
	c.state = nil
	c.progress()
	return nil
}

// emergencySave writes whatever the unfinished target has collected.
func (c *Controller) emergencySave() {
	s := c.state
	if s == nil || s.Status == models.StatusDone || s.Status == models.StatusBlocked {
		return
	}
	if s.CheckpointPath == "" && len(s.Collected) == 0 {
		return
	}
	path, err := c.opts.Storage.Save(s, false)
	if err != nil {
		c.logger.ErrorWithFields("Emergency save failed", map[string]interface{}{
			"target": s.Target.String(),
			"error":  err.Error(),
		})
		return
	}
	c.logger.WarnWithFields("Emergency save", map[string]interface{}{
		"target":  s.Target.String(),
		"records": len(s.Collected),
		"path":    path,
	})
	c.progress()
}

func (c *Controller) progress() {
	if c.opts.OnProgress == nil {
		return
	}
	c.opts.OnProgress(Progress{
		RunID:       c.opts.RunID,
		TargetIndex: c.next,
		State:       c.state.Clone(),
		Files:       append([]string(nil), c.files...),
	})
}

// runRetryable decides whether a failed run is attempted again.
func runRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case errs.IsBlocked(err), errs.Is(err, errs.ErrorTypeAuthentication), errs.Is(err, errs.ErrorTypeConfig):
		return false
	}
	return true
}
