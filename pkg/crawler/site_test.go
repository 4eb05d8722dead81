package crawler

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"peoplescraper/pkg/auth"
	"peoplescraper/pkg/browser"
	"peoplescraper/pkg/browser/browsertest"
	"peoplescraper/pkg/logger"
	"peoplescraper/pkg/models"
	"peoplescraper/pkg/retry"
	"peoplescraper/pkg/storage"
)

const (
	baseURL   = "https://www.linkedin.test"
	searchURL = baseURL + "/search/results/people/"
)

type person struct {
	name, position string
}

// listing is the result set of one (geo, company) filter combination.
type listing struct {
	pages   [][]person
	blocked map[int]bool
	broken  map[int]bool
}

// fixtureSite serves login, feed and search pages keyed on query params.
type fixtureSite struct {
	listings map[string]*listing
	// brokenLoads makes the next n loads of a path render without controls
	brokenLoads map[string]int
	noLoginForm bool
	loads       map[string]int
}

func newFixtureSite() *fixtureSite {
	return &fixtureSite{
		listings:    map[string]*listing{},
		brokenLoads: map[string]int{},
		loads:       map[string]int{},
	}
}

func (s *fixtureSite) add(geo, company string, l *listing) {
	s.listings[geo+"/"+company] = l
}

func people(prefix string, n int) []person {
	out := make([]person, n)
	for i := range out {
		out[i] = person{
			name:     fmt.Sprintf("%s Person %d", prefix, i+1),
			position: fmt.Sprintf("Engineer %s%d", prefix, i+1),
		}
	}
	return out
}

func records(ps ...[]person) []models.EmployeeRecord {
	var out []models.EmployeeRecord
	for _, page := range ps {
		for _, p := range page {
			out = append(out, models.NewEmployeeRecord(p.name, p.position))
		}
	}
	return out
}

func (s *fixtureSite) serve(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !strings.HasPrefix(raw, baseURL) {
		return "", false
	}
	s.loads[u.Path]++

	if n := s.brokenLoads[u.Path]; n > 0 {
		s.brokenLoads[u.Path] = n - 1
		return `<html><body>` + feedNav + `<p>Something went wrong</p></body></html>`, true
	}

	switch u.Path {
	case "/login":
		if s.noLoginForm {
			return `<html><body><p>Service unavailable</p></body></html>`, true
		}
		return `<html><body><form>
<input id="username"><input id="password" type="password">
<button type="submit" data-nav="/feed/">Sign in</button>
</form></body></html>`, true
	case "/feed/":
		return `<html><body>` + feedNav + `</body></html>`, true
	case "/search/results/people/":
		return s.searchPage(u.Query()), true
	case "/in/profile":
		return `<html><body><h1>Profile</h1></body></html>`, true
	}
	return "", false
}

const feedNav = `<div id="global-nav-typeahead">Search</div>
<ul><li aria-label="Search for people" data-nav="/search/results/people/">People</li></ul>`

const filterControls = `<button aria-label="Locations filter">Locations</button>
<fieldset class="geoRegion container">
  <input placeholder="Add a country/region">
  <button data-control-name="filter_pill_apply" data-apply>Apply</button>
</fieldset>
<button aria-label="Current companies filter">Current companies</button>
<form aria-label="Current companies filter options">
  <input placeholder="Add a current company">
  <button data-control-name="filter_pill_apply" data-apply>Apply</button>
</form>
<div role="listbox">
  <div role="option" data-param="geoUrn=berlin">Berlin, Germany</div>
  <div role="option" data-param="geoUrn=sao-paulo">São Paulo, Brazil</div>
  <div role="option" data-param="currentCompany=acme">Acme</div>
  <div role="option" data-param="currentCompany=acme-labs">Acme Labs</div>
  <div role="option" data-param="currentCompany=globex">Globex Corporation</div>
</div>`

func (s *fixtureSite) searchPage(q url.Values) string {
	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		page = p
	}

	var b strings.Builder
	b.WriteString(`<html><body>` + feedNav + filterControls)

	l, ok := s.listings[q.Get("geoUrn")+"/"+q.Get("currentCompany")]
	if !ok {
		l = &listing{pages: [][]person{people("Any", 1)}}
	}

	switch {
	case l.blocked[page]:
		b.WriteString(`<section><h2>Search limit reached</h2><p>Try again later.</p></section>`)
	case l.broken[page]:
		b.WriteString(`<section><p>Loading...</p></section>`)
	case page > len(l.pages):
		b.WriteString(`<p>No results</p>`)
	default:
		b.WriteString(`<ul class="search-results__list">`)
		for i, p := range l.pages[page-1] {
			fmt.Fprintf(&b, `<li class="search-result"><a data-control-name="search_srp_result" href="/in/profile?id=%d">`+
				`<span class="name actor-name">%s</span></a><p class="subline-level-1 search-result__truncate">%s</p></li>`,
				i, html.EscapeString(p.name), html.EscapeString(p.position))
			if i == 0 {
				b.WriteString(`<li class="search-result cross-promo">Try Premium</li>`)
			}
		}
		b.WriteString(`</ul>`)
		for n := 1; n <= len(l.pages); n++ {
			fmt.Fprintf(&b, `<button aria-label="Page %d">%d</button>`, n, n)
		}
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func fixedDate() time.Time {
	return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
}

type harness struct {
	site       *fixtureSite
	browser    *browsertest.Fake
	inProgress string
	completed  string
	log        *logger.TestLogger
	progress   []Progress
	opts       Options
}

func newHarness(t *testing.T, site *fixtureSite) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		site:       site,
		browser:    browsertest.New(site.serve),
		inProgress: filepath.Join(dir, "data_in_progress"),
		completed:  filepath.Join(dir, "data_raw"),
		log:        logger.NewTestLogger(),
	}

	store, err := storage.NewManager(h.inProgress, h.completed, h.log)
	require.NoError(t, err)
	store.WithClock(fixedDate)

	h.opts = Options{
		Browser:   h.browser,
		Selectors: browser.DefaultSelectors(),
		Account:   auth.Account{Identifier: "crawler@example.com", Passphrase: "secret"},
		BaseURL:   baseURL,
		Storage:   store,
		Retrier: retry.NewRetrier(&retry.Config{
			MaxAttempts: 3,
			Backoff:     &retry.ConstantBackoff{Delay: 0},
			RetryIf:     retry.DefaultRetryIf,
		}),
		WaitTimeout: time.Second,
		RunID:       "testrun1",
		OnProgress:  func(p Progress) { h.progress = append(h.progress, p) },
		Logger:      h.log,
	}
	return h
}

func (h *harness) controller(t *testing.T) *Controller {
	t.Helper()
	c, err := New(h.opts)
	require.NoError(t, err)
	return c
}

func (h *harness) run(t *testing.T, cities, companies []string, pageLimit int) *Result {
	t.Helper()
	return h.controller(t).Run(context.Background(), cities, companies, pageLimit)
}

// pageVisits counts loads of result page n of any search.
func (h *harness) pageVisits(n int) int {
	count := 0
	for _, v := range h.browser.Visits {
		u, err := url.Parse(v)
		if err != nil || u.Path != "/search/results/people/" {
			continue
		}
		if u.Query().Get("page") == strconv.Itoa(n) {
			count++
		}
	}
	return count
}

func (h *harness) loginVisits() int {
	count := 0
	for _, v := range h.browser.Visits {
		if v == baseURL+LoginPath {
			count++
		}
	}
	return count
}
