package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"peoplescraper/pkg/browser"
	errs "peoplescraper/pkg/errors"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/pacing"
	"peoplescraper/pkg/retry"
)

// Extractor reads result pages for one target at a time.
type Extractor struct {
	opts   Options
	onPage func(state *models.CrawlState)
	logger logger.Logger
}

// NewExtractor builds an Extractor. Missing options get their defaults.
func NewExtractor(opts Options) *Extractor {
	opts = opts.withDefaults()
	return &Extractor{
		opts:   opts,
		logger: opts.Logger.WithField("component", "extractor"),
	}
}

// PageURL derives the URL of page from the captured first page URL.
func PageURL(prefix string, page int) string {
	if page <= 1 {
		return prefix
	}
	sep := "&"
	if !strings.Contains(prefix, "?") {
		sep = "?"
	}
	return fmt.Sprintf("%s%spage=%d", prefix, sep, page)
}

// ExtractPage loads page and returns its records in document order.
// The browser must show the filtered first result page when PrefixURL
// is still empty.
func (e *Extractor) ExtractPage(ctx context.Context, state *models.CrawlState, page int) ([]models.EmployeeRecord, error) {
	b, sel := e.opts.Browser, e.opts.Selectors
	fail := func(err error) error {
		return &errs.Error{
			Type:   errs.ErrorTypeTransientUI,
			Op:     "extract_page",
			Target: state.Target.String(),
			Page:   page,
			Err:    err,
		}
	}

	if state.PrefixURL == "" {
		current, err := b.CurrentURL(ctx)
		if err != nil {
			return nil, fail(err)
		}
		state.PrefixURL = current
	} else {
		if err := e.opts.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if err := b.Navigate(ctx, PageURL(state.PrefixURL, page)); err != nil {
			return nil, fail(err)
		}
		if err := e.opts.Pacer.Settle(ctx); err != nil {
			return nil, err
		}
	}

	if err := b.WaitUntilPresent(ctx, sel.ResultsList, e.opts.WaitTimeout); err != nil {
		return nil, fail(err)
	}
	// Results render lazily; unscrolled items are missing, not stale.
	if err := b.ScrollToBottom(ctx); err != nil {
		return nil, fail(err)
	}

	items, err := b.FindAll(ctx, sel.ResultItem)
	if err != nil {
		return nil, fail(err)
	}

	records := make([]models.EmployeeRecord, 0, len(items))
	for i, item := range items {
		name, err := e.readField(ctx, item, sel.Name)
		if err != nil {
			return nil, fail(fmt.Errorf("result %d name: %w", i+1, err))
		}
		position, err := e.readField(ctx, item, sel.Position)
		if err != nil && !errors.Is(err, browser.ErrElementNotFound) {
			return nil, fail(fmt.Errorf("result %d position: %w", i+1, err))
		}
		records = append(records, models.NewEmployeeRecord(name, position))
	}

	action := pacing.Decide(page)
	if err := e.opts.Pacer.Execute(ctx, action, items); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.WarnWithFields("Pacing action failed", map[string]interface{}{
			"action": action.String(),
			"page":   page,
			"error":  err.Error(),
		})
	}

	return records, nil
}

func (e *Extractor) readField(ctx context.Context, parent browser.Element, selector string) (string, error) {
	el, err := e.opts.Browser.FindIn(ctx, parent, selector)
	if err != nil {
		return "", err
	}
	return e.opts.Browser.ReadText(ctx, el)
}

// GetEmployeesInfo extracts pages CurrentPage..LastPage of state, saving a
// snapshot after every page and reporting progress once the page cursor
// has moved past it. A page that keeps failing is skipped; a
// blocked page stops the whole target after an emergency save.
func (e *Extractor) GetEmployeesInfo(ctx context.Context, state *models.CrawlState, pageLimit int) ([]models.EmployeeRecord, error) {
	target := state.Target.String()
	state.Status = models.StatusExtracting

	if pageLimit > 0 {
		state.LastPage = pageLimit
	} else if state.LastPage == 0 {
		err := e.opts.Retrier.Do(ctx, "discover_last_page", map[string]interface{}{"target": target}, func(int) error {
			last, err := e.discoverLastPage(ctx)
			if err != nil {
				return err
			}
			state.LastPage = last
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	e.logger.InfoWithFields("Employee extraction started", map[string]interface{}{
		"target":     target,
		"first_page": state.CurrentPage,
		"last_page":  state.LastPage,
	})

	for !state.Finished() {
		page := state.CurrentPage
		fields := map[string]interface{}{"target": target, "page": page}

		var records []models.EmployeeRecord
		err := e.opts.Retrier.Do(ctx, "extract_page", fields, func(int) error {
			var err error
			records, err = e.ExtractPage(ctx, state, page)
			if err != nil && e.blocked(ctx) {
				return &errs.Error{
					Type:    errs.ErrorTypeBlocked,
					Op:      "extract_page",
					Target:  target,
					Page:    page,
					Message: "search limit reached",
				}
			}
			return err
		})

		switch {
		case errs.IsBlocked(err):
			state.Status = models.StatusBlocked
			if _, saveErr := e.opts.Storage.Save(state, false); saveErr != nil {
				e.logger.ErrorWithFields("Emergency save failed", map[string]interface{}{
					"target": target,
					"error":  saveErr.Error(),
				})
			}
			e.logger.ErrorWithFields("Crawler blocked by the site", fields)
			return nil, err
		case retry.IsExhausted(err):
			e.logger.ErrorWithFields("Page skipped after repeated failures", map[string]interface{}{
				"target": target,
				"page":   page,
				"error":  err.Error(),
			})
			state.Skip()
		case err != nil:
			return nil, err
		default:
			state.Record(records)
			logger.LogPage(e.logger, target, page, state.LastPage, len(records))
		}

		// Collected holds exactly the pages before CurrentPage, also when
		// the snapshot write fails.
		_, saveErr := e.opts.Storage.Save(state, false)
		state.Next()
		if saveErr != nil {
			return nil, &errs.Error{Type: errs.ErrorTypePersistence, Op: "save", Target: target, Page: page, Err: saveErr}
		}
		if e.onPage != nil {
			e.onPage(state)
		}
	}

	return state.Collected, nil
}

// discoverLastPage reads the number on the last pagination button. A
// search without pagination has a single page.
func (e *Extractor) discoverLastPage(ctx context.Context) (int, error) {
	b := e.opts.Browser
	fail := func(err error) error {
		return errs.Wrap(errs.ErrorTypeTransientUI, "discover_last_page", err)
	}

	if err := b.ScrollToBottom(ctx); err != nil {
		return 0, fail(err)
	}
	buttons, err := b.FindAll(ctx, e.opts.Selectors.PageButton)
	if err != nil {
		return 0, fail(err)
	}
	if len(buttons) == 0 {
		return 1, nil
	}
	text, err := b.ReadText(ctx, buttons[len(buttons)-1])
	if err != nil {
		return 0, fail(err)
	}
	last, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || last < 1 {
		return 0, fail(fmt.Errorf("unexpected page button %q", text))
	}
	return last, nil
}

// blocked reports whether the loaded page shows the rate limit marker.
func (e *Extractor) blocked(ctx context.Context) bool {
	b := e.opts.Browser
	body, err := b.Find(ctx, e.opts.Selectors.PageBody)
	if err != nil {
		return false
	}
	text, err := b.ReadText(ctx, body)
	if err != nil {
		return false
	}
	return strings.Contains(text, e.opts.Selectors.BlockedMarker)
}
