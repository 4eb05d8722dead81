package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the Chrome process.
type ChromeOptions struct {
	Headless    bool
	ExecPath    string
	UserDataDir string
	UserAgent   string
	// Logf receives chromedp's own log lines when set
	Logf func(format string, args ...interface{})
}

// Chrome drives one tab of a local Chrome/Chromium through the DevTools
// protocol. Requires Chrome/Chromium to be installed on the system.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var _ Browser = (*Chrome)(nil)

// NewChrome starts the browser and opens a tab. The tab lives until Close
// or until ctx is cancelled.
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)

	var ctxOpts []chromedp.ContextOption
	if opts.Logf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(opts.Logf))
	}
	tabCtx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// An empty Run starts the browser so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Chrome{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel}, nil
}

// run executes actions on the tab, aborting when the caller's ctx ends.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

func (c *Chrome) Back(ctx context.Context) error {
	if err := c.run(ctx, chromedp.NavigateBack()); err != nil {
		return fmt.Errorf("failed to navigate back: %w", err)
	}
	return nil
}

// query runs a non-blocking querySelectorAll, optionally scoped to parent.
func (c *Chrome) query(ctx context.Context, selector string, parent *cdp.Node) ([]*cdp.Node, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if parent != nil {
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := c.run(ctx, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return nodes, nil
}

func (c *Chrome) Find(ctx context.Context, selector string) (Element, error) {
	return c.first(ctx, selector, nil)
}

func (c *Chrome) FindIn(ctx context.Context, parent Element, selector string) (Element, error) {
	p, err := asNode(parent)
	if err != nil {
		return nil, err
	}
	return c.first(ctx, selector, p)
}

func (c *Chrome) first(ctx context.Context, selector string, parent *cdp.Node) (Element, error) {
	nodes, err := c.query(ctx, selector, parent)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return nodes[0], nil
}

func (c *Chrome) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return c.all(ctx, selector, nil)
}

func (c *Chrome) FindAllIn(ctx context.Context, parent Element, selector string) ([]Element, error) {
	p, err := asNode(parent)
	if err != nil {
		return nil, err
	}
	return c.all(ctx, selector, p)
}

func (c *Chrome) all(ctx context.Context, selector string, parent *cdp.Node) ([]Element, error) {
	nodes, err := c.query(ctx, selector, parent)
	if err != nil {
		return nil, err
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	el, err := c.Find(ctx, selector)
	if err != nil {
		return err
	}
	return c.ClickElement(ctx, el)
}

func (c *Chrome) ClickElement(ctx context.Context, el Element) error {
	n, err := asNode(el)
	if err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.MouseClickNode(n)); err != nil {
		return fmt.Errorf("failed to click %s: %w", n.LocalName, err)
	}
	return nil
}

func (c *Chrome) TypeText(ctx context.Context, selector, text string) error {
	el, err := c.Find(ctx, selector)
	if err != nil {
		return err
	}
	ids := []cdp.NodeID{el.(*cdp.Node).NodeID}
	if err := c.run(ctx,
		chromedp.Clear(ids, chromedp.ByNodeID),
		chromedp.SendKeys(ids, text, chromedp.ByNodeID),
	); err != nil {
		return fmt.Errorf("failed to type into %s: %w", selector, err)
	}
	return nil
}

func (c *Chrome) ScrollToBottom(ctx context.Context) error {
	if err := c.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil)); err != nil {
		return fmt.Errorf("failed to scroll to bottom: %w", err)
	}
	return nil
}

func (c *Chrome) ScrollBy(ctx context.Context, pixels int) error {
	if err := c.run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollBy(0, %d)`, pixels), nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

func (c *Chrome) ReadText(ctx context.Context, el Element) (string, error) {
	n, err := asNode(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := c.run(ctx, chromedp.Text([]cdp.NodeID{n.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Chrome) ReadAttribute(ctx context.Context, el Element, name string) (string, error) {
	n, err := asNode(el)
	if err != nil {
		return "", err
	}
	var (
		value string
		ok    bool
	)
	if err := c.run(ctx, chromedp.AttributeValue([]cdp.NodeID{n.NodeID}, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrAttributeMissing, name)
	}
	return value, nil
}

func (c *Chrome) WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := c.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s after %s", ErrWaitTimeout, selector, timeout)
	}
	return fmt.Errorf("failed waiting for %s: %w", selector, err)
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func asNode(el Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("%w: unexpected handle %T", ErrStaleElement, el)
	}
	return n, nil
}
