// Package crawler drives a people search session: login, filter selection,
// page extraction and finalization of every (city, company) target.
package crawler

import (
	"time"

	"peoplescraper/pkg/auth"
	"peoplescraper/pkg/browser"
	"peoplescraper/pkg/config"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/pacing"
	"peoplescraper/pkg/ratelimit"
	"peoplescraper/pkg/retry"
	"peoplescraper/pkg/storage"
)

// LoginPath is appended to the site base URL to reach the sign-in form.
const LoginPath = "/login?fromSignIn=true"

const (
	defaultWaitTimeout    = 15 * time.Second
	defaultMatchThreshold = 0.85
)

// Options wires a Controller or Extractor to its collaborators.
type Options struct {
	Browser   browser.Browser
	Selectors browser.Selectors
	Account   auth.Account
	BaseURL   string

	Storage *storage.Manager
	Pacer   *pacing.Pacer
	Limiter ratelimit.Limiter
	// Retrier bounds login, filter and page attempts
	Retrier *retry.Retrier
	// RunRetrier bounds whole-run attempts; defaults to Retrier's settings
	RunRetrier *retry.Retrier

	WaitTimeout    time.Duration
	MatchThreshold float64
	// Dedupe drops repeated records of a target before it is finalized
	Dedupe bool
	RunID  string
	// OnProgress receives every checkpointable change of the run
	OnProgress func(Progress)
	Logger     logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.GetLogger()
	}
	if o.Pacer == nil {
		o.Pacer = pacing.NewPacer(o.Browser, o.Selectors.ProfileLink, config.PacingConfig{}, o.Logger)
	}
	if o.Limiter == nil {
		o.Limiter = ratelimit.Unlimited{}
	}
	if o.Retrier == nil {
		o.Retrier = retry.NewRetrier(nil)
	}
	o.Retrier = o.Retrier.WithLogger(o.Logger)
	if o.RunRetrier == nil {
		o.RunRetrier = o.Retrier
	}
	o.RunRetrier = o.RunRetrier.WithLogger(o.Logger).WithRetryIf(runRetryable)
	if o.WaitTimeout <= 0 {
		o.WaitTimeout = defaultWaitTimeout
	}
	if o.MatchThreshold <= 0 {
		o.MatchThreshold = defaultMatchThreshold
	}
	return o
}
