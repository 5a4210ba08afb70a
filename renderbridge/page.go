package renderbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"
)

// OpenPage creates a stealth page on the browser, navigates it, and waits
// for load. The caller owns the returned page and closes it.
func OpenPage(ctx context.Context, browser *rod.Browser, pageURL string) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("renderbridge: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("renderbridge: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("renderbridge: wait load %s: %w", pageURL, err)
	}
	return page, nil
}

// LoadMarkup opens a blank stealth page and writes the given markup into it,
// for rendering documents that never lived at a URL.
func LoadMarkup(ctx context.Context, browser *rod.Browser, markup string) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("renderbridge: create page: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := page.Context(loadCtx).Eval(`(html) => {
		document.open();
		document.write(html);
		document.close();
	}`, markup); err != nil {
		page.Close()
		return nil, fmt.Errorf("renderbridge: load markup: %w", err)
	}
	return page, nil
}
