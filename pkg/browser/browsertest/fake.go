// Package browsertest provides an in-memory browser.Browser that serves
// static HTML fixtures and queries them with goquery.
//
// Clicks follow a few fixture attributes instead of running scripts:
//
//	data-nav="/path?x=1"   navigate to the URL, resolved against the current page
//	data-param="geo=berlin" remember a query parameter
//	data-apply             navigate to the current URL plus remembered parameters
//
// Elements without these attributes are clickable but do nothing.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"peoplescraper/pkg/browser"
)

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("browser closed")

// Site returns the HTML served at url. ok is false when no page exists.
type Site func(url string) (html string, ok bool)

// Pages serves a fixed URL to HTML map.
func Pages(pages map[string]string) Site {
	return func(u string) (string, bool) {
		html, ok := pages[u]
		return html, ok
	}
}

// Typing is one TypeText call.
type Typing struct {
	Selector string
	Text     string
}

// Fake is a fixture-backed browser.Browser. It is not safe for concurrent use.
type Fake struct {
	site Site

	current string
	doc     *goquery.Document
	gen     int
	history []string
	params  url.Values

	// Visits lists every URL loaded, including loads caused by Back.
	Visits []string
	// Clicks lists clicked selectors, or the text of clicked elements.
	Clicks []string
	Typed  []Typing
	// Scrolls lists ScrollBy offsets.
	Scrolls       []int
	BottomScrolls int
	Waits         []string
	Closed        bool
}

var _ browser.Browser = (*Fake)(nil)

type element struct {
	sel *goquery.Selection
	gen int
}

// New returns a Fake with no page loaded.
func New(site Site) *Fake {
	return &Fake{site: site, params: url.Values{}}
}

func (f *Fake) check(ctx context.Context) error {
	if f.Closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (f *Fake) load(u string) error {
	html, ok := f.site(u)
	if !ok {
		return fmt.Errorf("no page at %s", u)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse page %s: %w", u, err)
	}
	f.current = u
	f.doc = doc
	f.gen++
	f.Visits = append(f.Visits, u)
	return nil
}

func (f *Fake) Navigate(ctx context.Context, u string) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	prev := f.current
	if err := f.load(u); err != nil {
		return err
	}
	if prev != "" {
		f.history = append(f.history, prev)
	}
	return nil
}

func (f *Fake) CurrentURL(ctx context.Context) (string, error) {
	if err := f.check(ctx); err != nil {
		return "", err
	}
	return f.current, nil
}

func (f *Fake) Back(ctx context.Context) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	if len(f.history) == 0 {
		return errors.New("no history to go back to")
	}
	prev := f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	return f.load(prev)
}

func (f *Fake) find(sel string) *goquery.Selection {
	if f.doc == nil {
		return nil
	}
	return f.doc.Find(sel)
}

func (f *Fake) Find(ctx context.Context, selector string) (browser.Element, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	s := f.find(selector)
	if s == nil || s.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return element{sel: s.First(), gen: f.gen}, nil
}

func (f *Fake) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	return f.wrap(f.find(selector)), nil
}

func (f *Fake) FindIn(ctx context.Context, parent browser.Element, selector string) (browser.Element, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	p, err := f.resolve(parent)
	if err != nil {
		return nil, err
	}
	s := p.Find(selector)
	if s.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return element{sel: s.First(), gen: f.gen}, nil
}

func (f *Fake) FindAllIn(ctx context.Context, parent browser.Element, selector string) ([]browser.Element, error) {
	if err := f.check(ctx); err != nil {
		return nil, err
	}
	p, err := f.resolve(parent)
	if err != nil {
		return nil, err
	}
	return f.wrap(p.Find(selector)), nil
}

func (f *Fake) wrap(s *goquery.Selection) []browser.Element {
	if s == nil {
		return nil
	}
	out := make([]browser.Element, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, element{sel: item, gen: f.gen})
	})
	return out
}

func (f *Fake) resolve(el browser.Element) (*goquery.Selection, error) {
	e, ok := el.(element)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected handle %T", browser.ErrStaleElement, el)
	}
	if e.gen != f.gen {
		return nil, browser.ErrStaleElement
	}
	return e.sel, nil
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	el, err := f.Find(ctx, selector)
	if err != nil {
		return err
	}
	f.Clicks = append(f.Clicks, selector)
	return f.activate(el.(element).sel)
}

func (f *Fake) ClickElement(ctx context.Context, el browser.Element) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	s, err := f.resolve(el)
	if err != nil {
		return err
	}
	f.Clicks = append(f.Clicks, strings.TrimSpace(s.Text()))
	return f.activate(s)
}

func (f *Fake) activate(s *goquery.Selection) error {
	if param, ok := s.Attr("data-param"); ok {
		key, value, _ := strings.Cut(param, "=")
		f.params.Set(key, value)
	}
	if target, ok := s.Attr("data-nav"); ok {
		next, err := f.join(target)
		if err != nil {
			return err
		}
		return f.Navigate(context.Background(), next)
	}
	if _, ok := s.Attr("data-apply"); ok {
		u, err := url.Parse(f.current)
		if err != nil {
			return fmt.Errorf("failed to parse current URL: %w", err)
		}
		q := u.Query()
		for key, values := range f.params {
			q[key] = values
		}
		u.RawQuery = q.Encode()
		f.params = url.Values{}
		return f.Navigate(context.Background(), u.String())
	}
	return nil
}

func (f *Fake) join(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("failed to parse link %q: %w", ref, err)
	}
	if f.current == "" {
		return r.String(), nil
	}
	base, err := url.Parse(f.current)
	if err != nil {
		return "", fmt.Errorf("failed to parse current URL: %w", err)
	}
	return base.ResolveReference(r).String(), nil
}

func (f *Fake) TypeText(ctx context.Context, selector, text string) error {
	if _, err := f.Find(ctx, selector); err != nil {
		return err
	}
	f.Typed = append(f.Typed, Typing{Selector: selector, Text: text})
	return nil
}

func (f *Fake) ScrollToBottom(ctx context.Context) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.BottomScrolls++
	return nil
}

func (f *Fake) ScrollBy(ctx context.Context, pixels int) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.Scrolls = append(f.Scrolls, pixels)
	return nil
}

func (f *Fake) ReadText(ctx context.Context, el browser.Element) (string, error) {
	if err := f.check(ctx); err != nil {
		return "", err
	}
	s, err := f.resolve(el)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.Text()), nil
}

func (f *Fake) ReadAttribute(ctx context.Context, el browser.Element, name string) (string, error) {
	if err := f.check(ctx); err != nil {
		return "", err
	}
	s, err := f.resolve(el)
	if err != nil {
		return "", err
	}
	value, ok := s.Attr(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", browser.ErrAttributeMissing, name)
	}
	return value, nil
}

// WaitUntilPresent never blocks: fixtures are fully rendered on load.
func (f *Fake) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) error {
	if err := f.check(ctx); err != nil {
		return err
	}
	f.Waits = append(f.Waits, selector)
	if s := f.find(selector); s == nil || s.Length() == 0 {
		return fmt.Errorf("%w: %s after %s", browser.ErrWaitTimeout, selector, timeout)
	}
	return nil
}

func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
