package browser

import (
	"context"

	pw "github.com/playwright-community/playwright-go"
)

// Per-operation playwright timeouts, well inside any sane session budget.
const (
	gotoTimeoutMs   = 30000
	actionTimeoutMs = 10000
)

// pwPage adapts a playwright page to the playbook.Page surface. Every
// operation checks the session context first so a force-closed session
// fails with the deadline cause instead of a raw transport error.
type pwPage struct {
	page pw.Page
}

func (p *pwPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return ErrDeadline
	}
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(gotoTimeoutMs),
	})
	return err
}

func (p *pwPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return ErrDeadline
	}
	return p.page.Click(selector, pw.PageClickOptions{
		Timeout: pw.Float(actionTimeoutMs),
	})
}

func (p *pwPage) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return ErrDeadline
	}
	return p.page.Fill(selector, value, pw.PageFillOptions{
		Timeout: pw.Float(actionTimeoutMs),
	})
}

func (p *pwPage) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrDeadline
	}
	return p.page.Locator(selector).First().TextContent(pw.LocatorTextContentOptions{
		Timeout: pw.Float(actionTimeoutMs),
	})
}

func (p *pwPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrDeadline
	}
	return p.page.Content()
}

func (p *pwPage) ElementShot(ctx context.Context, selector string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrDeadline
	}
	return p.page.Locator(selector).First().Screenshot(pw.LocatorScreenshotOptions{
		Type:    pw.ScreenshotTypePng,
		Timeout: pw.Float(actionTimeoutMs),
	})
}
