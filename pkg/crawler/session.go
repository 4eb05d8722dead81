package crawler

import (
	"context"
	"fmt"
	"strings"

	"peoplescraper/pkg/browser"
	errs "peoplescraper/pkg/errors"
)

// login signs in with the configured account. Exhausted attempts are an
// authentication failure, fatal for the run.
func (c *Controller) login(ctx context.Context, city string) error {
	b, sel := c.opts.Browser, c.opts.Selectors
	account := c.opts.Account
	if account.Identifier == "" || account.Passphrase == "" {
		return errs.New(errs.ErrorTypeConfig, "login", "credentials are not configured")
	}
	loginURL := strings.TrimRight(c.opts.BaseURL, "/") + LoginPath

	err := c.opts.Retrier.Do(ctx, "login", map[string]interface{}{"city": city}, func(int) error {
		c.logger.InfoWithFields("Attempting to login", map[string]interface{}{"url": loginURL})
		if err := b.Navigate(ctx, loginURL); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		if err := b.WaitUntilPresent(ctx, sel.LoginUsername, c.opts.WaitTimeout); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		if err := b.TypeText(ctx, sel.LoginUsername, account.Identifier); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		if err := b.TypeText(ctx, sel.LoginPassword, account.Passphrase); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		if err := b.Click(ctx, sel.LoginSubmit); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		if err := b.WaitUntilPresent(ctx, sel.GlobalSearch, c.opts.WaitTimeout); err != nil {
			return errs.Wrap(errs.ErrorTypeAuthentication, "login", err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errs.Error{Type: errs.ErrorTypeAuthentication, Op: "login", Message: "failure to login", Err: err}
	}

	c.logger.Info("Log in was successful")
	return nil
}

// openPeopleSearch goes from the home feed to the people search page.
func (c *Controller) openPeopleSearch(ctx context.Context) error {
	b, sel := c.opts.Browser, c.opts.Selectors
	return c.opts.Retrier.Do(ctx, "open_people_search", nil, func(int) error {
		fail := func(err error) error {
			return errs.Wrap(errs.ErrorTypeTransientUI, "open_people_search", err)
		}
		if err := b.Click(ctx, sel.GlobalSearch); err != nil {
			return fail(err)
		}
		if err := c.opts.Pacer.FilterPause(ctx); err != nil {
			return err
		}
		if err := b.WaitUntilPresent(ctx, sel.PeopleSearch, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}
		if err := b.Click(ctx, sel.PeopleSearch); err != nil {
			return fail(err)
		}
		if err := c.opts.Pacer.FilterPause(ctx); err != nil {
			return err
		}
		if err := b.WaitUntilPresent(ctx, sel.CityFilter.Button, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}
		return nil
	})
}

// returnToCity reloads the city filtered search before the next company.
func (c *Controller) returnToCity(ctx context.Context) error {
	b := c.opts.Browser
	return c.opts.Retrier.Do(ctx, "open_people_search", map[string]interface{}{"city": c.city}, func(int) error {
		if err := b.Navigate(ctx, c.cityURL); err != nil {
			return errs.Wrap(errs.ErrorTypeTransientUI, "open_people_search", err)
		}
		if err := b.WaitUntilPresent(ctx, c.opts.Selectors.CompanyFilter.Button, c.opts.WaitTimeout); err != nil {
			return errs.Wrap(errs.ErrorTypeTransientUI, "open_people_search", err)
		}
		return nil
	})
}

// applyFilter runs one filter round-trip: open it, type value, pick the
// closest suggestion, apply, and wait for the refreshed results.
func (c *Controller) applyFilter(ctx context.Context, kind string, fs browser.FilterSelectors, value string) error {
	b := c.opts.Browser
	fields := map[string]interface{}{"filter": kind, "value": value}
	c.logger.InfoWithFields("Filter selection started", fields)

	var chosen string
	err := c.opts.Retrier.Do(ctx, "apply_filter", fields, func(int) error {
		fail := func(err error) error {
			return errs.Wrap(errs.ErrorTypeTransientUI, "apply_filter", fmt.Errorf("%s filter: %w", kind, err))
		}

		if err := b.Click(ctx, fs.Button); err != nil {
			return fail(err)
		}
		if err := b.WaitUntilPresent(ctx, fs.Input, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}
		if err := b.TypeText(ctx, fs.Input, value); err != nil {
			return fail(err)
		}
		if err := c.opts.Pacer.FilterPause(ctx); err != nil {
			return err
		}
		if err := b.WaitUntilPresent(ctx, fs.Suggestion, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}

		options, err := b.FindAll(ctx, fs.Suggestion)
		if err != nil {
			return fail(err)
		}
		labels := make([]string, len(options))
		for i, opt := range options {
			if labels[i], err = b.ReadText(ctx, opt); err != nil {
				return fail(err)
			}
		}
		idx, score := bestSuggestion(value, labels)
		if idx < 0 || score < c.opts.MatchThreshold {
			return fail(fmt.Errorf("no suggestion matches %q", value))
		}
		chosen = labels[idx]

		if err := b.ClickElement(ctx, options[idx]); err != nil {
			return fail(err)
		}
		if err := c.opts.Pacer.FilterPause(ctx); err != nil {
			return err
		}
		if err := b.WaitUntilPresent(ctx, fs.Apply, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}
		if err := b.Click(ctx, fs.Apply); err != nil {
			return fail(err)
		}
		if err := c.opts.Pacer.FilterPause(ctx); err != nil {
			return err
		}
		if err := b.WaitUntilPresent(ctx, c.opts.Selectors.ResultsList, c.opts.WaitTimeout); err != nil {
			return fail(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.InfoWithFields("Filter selection finished", map[string]interface{}{
		"filter":     kind,
		"value":      value,
		"suggestion": chosen,
	})
	return nil
}
