package pacing

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peoplescraper/pkg/browser"
	"peoplescraper/pkg/browser/browsertest"
	"peoplescraper/pkg/config"
	"peoplescraper/pkg/logger"
)

const searchURL = "https://site.test/search/results/people/?geo=berlin"

func resultsPage(n int) string {
	var b strings.Builder
	b.WriteString("<html><body><ul class=\"results\">")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<li><a class="profile" href="/in/person-%d">Person %d</a></li>`, i, i)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func newSite(n int) browsertest.Site {
	return func(u string) (string, bool) {
		if u == searchURL {
			return resultsPage(n), true
		}
		if strings.HasPrefix(u, "https://site.test/in/person-") {
			return "<html><body><h1>profile</h1></body></html>", true
		}
		return "", false
	}
}

type recordedSleeps struct {
	durations []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.durations = append(r.durations, d)
	return ctx.Err()
}

func testPacingConfig() config.PacingConfig {
	cfg := config.DefaultConfig().Pacing
	cfg.Seed = 7
	return cfg
}

func newTestPacer(t *testing.T, n int, cfg config.PacingConfig) (*Pacer, *browsertest.Fake, *recordedSleeps, []browser.Element) {
	t.Helper()
	ctx := context.Background()
	fake := browsertest.New(newSite(n))
	require.NoError(t, fake.Navigate(ctx, searchURL))
	results, err := fake.FindAll(ctx, "ul.results > li")
	require.NoError(t, err)

	sleeps := &recordedSleeps{}
	p := NewPacer(fake, "a.profile", cfg, logger.NewNopLogger()).WithSleeper(sleeps.sleep)
	return p, fake, sleeps, results
}

func TestExecuteRandomScroll(t *testing.T) {
	p, fake, sleeps, results := newTestPacer(t, 3, testPacingConfig())

	require.NoError(t, p.Execute(context.Background(), RandomScroll, results))
	require.Len(t, fake.Scrolls, 1)
	assert.GreaterOrEqual(t, fake.Scrolls[0], 300)
	assert.LessOrEqual(t, fake.Scrolls[0], 1500)
	assert.Empty(t, sleeps.durations)
}

func TestExecuteLongPause(t *testing.T) {
	p, fake, sleeps, results := newTestPacer(t, 3, testPacingConfig())

	require.NoError(t, p.Execute(context.Background(), LongPause, results))
	assert.Equal(t, []time.Duration{20 * time.Second}, sleeps.durations)
	assert.Empty(t, fake.Scrolls)
}

func TestExecuteVisitRandomProfiles(t *testing.T) {
	p, fake, sleeps, results := newTestPacer(t, 15, testPacingConfig())

	require.NoError(t, p.Execute(context.Background(), VisitRandomProfiles, results))

	visits := fake.Visits[1:]
	require.NotEmpty(t, visits)
	require.Equal(t, 0, len(visits)%2, "every profile visit is followed by a return")
	profiles := len(visits) / 2
	assert.True(t, profiles == 1 || profiles == 2, "visited %d profiles", profiles)

	seen := map[string]bool{}
	for i := 0; i < len(visits); i += 2 {
		profile := visits[i]
		assert.Equal(t, searchURL, visits[i+1])
		assert.False(t, seen[profile], "profile visited twice")
		seen[profile] = true

		var idx int
		_, err := fmt.Sscanf(profile, "https://site.test/in/person-%d", &idx)
		require.NoError(t, err)
		assert.LessOrEqual(t, idx, profileCandidates, "only the first entries are candidates")
	}

	assert.Len(t, sleeps.durations, profiles)
	for _, d := range sleeps.durations {
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 4*time.Second)
	}
	assert.Len(t, fake.Scrolls, profiles)

	current, err := fake.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, searchURL, current)
}

func TestExecuteVisitSingleResult(t *testing.T) {
	p, fake, _, results := newTestPacer(t, 1, testPacingConfig())

	require.NoError(t, p.Execute(context.Background(), VisitRandomProfiles, results))
	assert.Equal(t, []string{searchURL, "https://site.test/in/person-1", searchURL}, fake.Visits)
}

func TestExecuteVisitNoResults(t *testing.T) {
	p, fake, _, _ := newTestPacer(t, 0, testPacingConfig())

	require.NoError(t, p.Execute(context.Background(), VisitRandomProfiles, nil))
	assert.Equal(t, []string{searchURL}, fake.Visits)
}

func TestDisabledPacerDoesNothing(t *testing.T) {
	cfg := testPacingConfig()
	cfg.Enabled = false
	p, fake, sleeps, results := newTestPacer(t, 12, cfg)
	ctx := context.Background()

	for _, action := range []Action{RandomScroll, LongPause, VisitRandomProfiles} {
		require.NoError(t, p.Execute(ctx, action, results))
	}
	require.NoError(t, p.Settle(ctx))
	require.NoError(t, p.FilterPause(ctx))

	assert.False(t, p.Enabled())
	assert.Empty(t, sleeps.durations)
	assert.Empty(t, fake.Scrolls)
	assert.Equal(t, []string{searchURL}, fake.Visits)
}

func TestSettleAndFilterPauseRanges(t *testing.T) {
	p, _, sleeps, _ := newTestPacer(t, 0, testPacingConfig())
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, p.Settle(ctx))
		require.NoError(t, p.FilterPause(ctx))
	}
	require.Len(t, sleeps.durations, 40)
	for i, d := range sleeps.durations {
		if i%2 == 0 {
			assert.True(t, d >= 6*time.Second && d <= 10*time.Second, "settle %s", d)
		} else {
			assert.True(t, d >= time.Second && d <= 2*time.Second, "filter pause %s", d)
		}
	}
}

func TestPauseHonoursCancellation(t *testing.T) {
	fake := browsertest.New(newSite(0))
	p := NewPacer(fake, "a.profile", testPacingConfig(), logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Execute(ctx, LongPause, nil), context.Canceled)
}

func TestSeededPacersAgree(t *testing.T) {
	a, _, sa, _ := newTestPacer(t, 0, testPacingConfig())
	b, _, sb, _ := newTestPacer(t, 0, testPacingConfig())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Settle(ctx))
		require.NoError(t, b.Settle(ctx))
	}
	assert.Equal(t, sa.durations, sb.durations)
}
