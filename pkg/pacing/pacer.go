package pacing

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"peoplescraper/pkg/browser"
	"peoplescraper/pkg/config"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/retry"
)

// profileCandidates bounds profile visits to the top of the result list.
const profileCandidates = 10

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Pacer executes pacing actions against a browser.
type Pacer struct {
	browser     browser.Browser
	profileLink string
	cfg         config.PacingConfig
	rng         *rand.Rand
	sleep       Sleeper
	logger      logger.Logger
}

// NewPacer creates a Pacer. profileLink selects the profile anchor inside a
// result element. A zero cfg.Seed seeds from the clock.
func NewPacer(b browser.Browser, profileLink string, cfg config.PacingConfig, log logger.Logger) *Pacer {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pacer{
		browser:     b,
		profileLink: profileLink,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
		sleep:       retry.Wait,
		logger:      log.WithField("component", "pacer"),
	}
}

// WithSleeper replaces the timer used for every pacing wait.
func (p *Pacer) WithSleeper(s Sleeper) *Pacer {
	p.sleep = s
	return p
}

// Enabled reports whether pacing actions run at all.
func (p *Pacer) Enabled() bool {
	return p.cfg.Enabled
}

// Settle waits after a result page navigation.
func (p *Pacer) Settle(ctx context.Context) error {
	return p.pause(ctx, "settle", p.between(p.cfg.SettleMin, p.cfg.SettleMax))
}

// FilterPause waits between the steps of a filter round-trip.
func (p *Pacer) FilterPause(ctx context.Context) error {
	return p.pause(ctx, "filter", p.between(p.cfg.FilterPauseMin, p.cfg.FilterPauseMax))
}

// Execute performs action. results are the element handles of the page
// just extracted; only VisitRandomProfiles reads them.
func (p *Pacer) Execute(ctx context.Context, action Action, results []browser.Element) error {
	if !p.cfg.Enabled {
		return nil
	}
	p.logger.DebugWithFields("Pacing action", map[string]interface{}{
		"action":  action.String(),
		"results": len(results),
	})

	switch action {
	case LongPause:
		return p.pause(ctx, "long", p.cfg.LongPause)
	case VisitRandomProfiles:
		return p.visitProfiles(ctx, results)
	default:
		return p.randomScroll(ctx)
	}
}

func (p *Pacer) visitProfiles(ctx context.Context, results []browser.Element) error {
	n := min(profileCandidates, len(results))
	if n == 0 {
		return nil
	}
	count := min(1+p.rng.Intn(2), n)

	base, err := p.browser.CurrentURL(ctx)
	if err != nil {
		return err
	}

	// Handles go stale on navigation, so resolve every URL up front.
	var targets []string
	for _, idx := range p.rng.Perm(n)[:count] {
		link, err := p.browser.FindIn(ctx, results[idx], p.profileLink)
		if err != nil {
			return fmt.Errorf("failed to find profile link: %w", err)
		}
		href, err := p.browser.ReadAttribute(ctx, link, "href")
		if err != nil {
			return fmt.Errorf("failed to read profile link: %w", err)
		}
		target, err := resolve(base, href)
		if err != nil {
			return err
		}
		targets = append(targets, target)
	}

	for _, target := range targets {
		p.logger.DebugWithFields("Visiting profile", map[string]interface{}{"url": target})
		if err := p.browser.Navigate(ctx, target); err != nil {
			return err
		}
		if err := p.pause(ctx, "dwell", p.between(p.cfg.DwellMin, p.cfg.DwellMax)); err != nil {
			return err
		}
		if err := p.randomScroll(ctx); err != nil {
			return err
		}
		if err := p.browser.Back(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pacer) randomScroll(ctx context.Context) error {
	lo, hi := p.cfg.ScrollMinPx, p.cfg.ScrollMaxPx
	px := lo
	if hi > lo {
		px += p.rng.Intn(hi - lo + 1)
	}
	return p.browser.ScrollBy(ctx, px)
}

func (p *Pacer) pause(ctx context.Context, kind string, d time.Duration) error {
	if !p.cfg.Enabled || d <= 0 {
		return nil
	}
	p.logger.DebugWithFields("Pausing", map[string]interface{}{
		"kind":     kind,
		"duration": d.String(),
	})
	return p.sleep(ctx, d)
}

func (p *Pacer) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(p.rng.Int63n(int64(hi-lo)+1))
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse page URL: %w", err)
	}
	r, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("failed to parse profile link %q: %w", href, err)
	}
	return b.ResolveReference(r).String(), nil
}
