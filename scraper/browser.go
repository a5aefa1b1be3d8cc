package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// BrowserFetcher renders pages in a local headless Chromium.
type BrowserFetcher struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
}

func NewBrowserFetcher() *BrowserFetcher {
	return &BrowserFetcher{}
}

func (f *BrowserFetcher) ensureBrowser() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.initialized {
		return nil
	}

	var err error
	f.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	f.browser, err = f.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		f.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	f.initialized = true
	return nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := f.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}

	resp, err := page.Goto(url, gotoOpts)
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	if opts.PageWait > 0 {
		page.WaitForTimeout(float64(opts.PageWait.Milliseconds()))
	}

	content, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	status := 200
	if resp != nil {
		status = resp.Status()
	}
	return &Response{StatusCode: status, Body: content}, nil
}

func (f *BrowserFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		f.browser.Close()
	}
	if f.pw != nil {
		if err := f.pw.Stop(); err != nil {
			log.Printf("[warn] playwright stop: %v", err)
		}
	}
	f.initialized = false
}
