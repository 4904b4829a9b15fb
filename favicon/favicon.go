// Package favicon fetches a dapp's favicon for display in approval prompts.
// Fetching is best effort: callers show the prompt without an icon when it
// fails.
package favicon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Fetch returns the favicon bytes for a page. Icons declared with a
// <link rel="icon"> in the page head take precedence over the /favicon.ico
// well-known location. maxBytes bounds both the HTML scan and the icon
// download.
func Fetch(ctx context.Context, client *http.Client, pageURL string, maxBytes int64) ([]byte, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("page url %q has no host", pageURL)
	}

	var candidates []*url.URL
	if href, err := iconFromPageHead(ctx, client, parsed, maxBytes); err == nil {
		candidates = append(candidates, href)
	}
	candidates = append(candidates, parsed.ResolveReference(&url.URL{Path: "/favicon.ico"}))

	var lastErr error
	for _, candidate := range candidates {
		icon, err := download(ctx, client, candidate, maxBytes)
		if err != nil {
			lastErr = err
			continue
		}
		if len(icon) > 0 {
			return icon, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no favicon for %s", parsed.Host)
	}
	return nil, lastErr
}

// iconFromPageHead downloads the page and returns the first icon link in its
// head, resolved against the page URL.
func iconFromPageHead(ctx context.Context, client *http.Client, pageURL *url.URL, maxBytes int64) (*url.URL, error) {
	body, err := get(ctx, client, pageURL, maxBytes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	tokenizer := html.NewTokenizer(body)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// Covers both real errors and EOF on truncated reads.
			return nil, fmt.Errorf("no icon link in page head")
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data == "body" {
				return nil, fmt.Errorf("no icon link in page head")
			}
			if token.Data != "link" {
				continue
			}
			href, ok := iconHref(token)
			if !ok {
				continue
			}
			resolved, err := url.Parse(href)
			if err != nil {
				continue
			}
			return pageURL.ResolveReference(resolved), nil
		}
	}
}

// iconHref returns the href of a link token whose rel names an icon.
func iconHref(token html.Token) (string, bool) {
	var rel, href string
	for _, attr := range token.Attr {
		switch attr.Key {
		case "rel":
			rel = attr.Val
		case "href":
			href = attr.Val
		}
	}
	if href == "" || strings.HasPrefix(href, "data:") {
		return "", false
	}
	for _, field := range strings.Fields(rel) {
		if strings.EqualFold(field, "icon") || strings.EqualFold(field, "apple-touch-icon") {
			return href, true
		}
	}
	return "", false
}

func get(ctx context.Context, client *http.Client, u *url.URL, maxBytes int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		_ = res.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", u.Host, res.StatusCode)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(res.Body, maxBytes), res.Body}, nil
}

func download(ctx context.Context, client *http.Client, u *url.URL, maxBytes int64) ([]byte, error) {
	body, err := get(ctx, client, u, maxBytes)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	icon, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read icon: %w", err)
	}
	return icon, nil
}
