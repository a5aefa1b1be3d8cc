package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const crawlbaseEndpoint = "https://api.crawlbase.com/"

// CrawlbaseFetcher renders pages through the Crawlbase crawling API.
type CrawlbaseFetcher struct {
	token    string
	endpoint string
	client   *http.Client
}

func NewCrawlbaseFetcher(token string, client *http.Client) *CrawlbaseFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &CrawlbaseFetcher{token: token, endpoint: crawlbaseEndpoint, client: client}
}

func (f *CrawlbaseFetcher) Fetch(ctx context.Context, target string, opts FetchOptions) (*Response, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("token", f.token)
	q.Set("url", target)
	q.Set("ajax_wait", "true")
	if opts.PageWait > 0 {
		q.Set("page_wait", strconv.FormatInt(opts.PageWait.Milliseconds(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crawlbase request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// The API answers 200 even when the target failed; original_status carries
	// the target's code.
	code := resp.StatusCode
	if orig := resp.Header.Get("original_status"); orig != "" && code == http.StatusOK {
		if n, err := strconv.Atoi(orig); err == nil {
			code = n
		}
	}

	return &Response{StatusCode: code, Body: string(body)}, nil
}
