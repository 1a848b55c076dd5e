// internal/browser/render.go
package browser

import (
	"bytes"
	"context"
	"fmt"
	"html"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: Georgia, "Times New Roman", serif; font-size: 12pt; line-height: 1.5; color: #111; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 8px; }
pre, code { font-family: Menlo, Consolas, monospace; font-size: 10pt; }
</style>
</head>
<body>
%s
</body>
</html>
`

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// MarkdownToHTML renders GitHub-flavored markdown into a standalone HTML
// document.
func MarkdownToHTML(title, md string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return fmt.Sprintf(documentTemplate, html.EscapeString(title), body.String()), nil
}

// Renderer prints markdown to PDF in a scratch tab of the shared browser.
type Renderer struct {
	browserCtx context.Context
	logger     *zap.Logger
}

// RenderPDF renders md as a Letter page PDF with one inch margins.
func (r *Renderer) RenderPDF(ctx context.Context, md string) ([]byte, error) {
	doc, err := MarkdownToHTML("Worksheet", md)
	if err != nil {
		return nil, err
	}

	tabCtx, cancel := chromedp.NewContext(r.browserCtx)
	defer cancel()
	// Create the target before any deadline is attached to it.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("opening render tab: %w", err)
	}
	rctx, stop := CombineContext(tabCtx, ctx)
	defer stop()

	var pdf []byte
	err = chromedp.Run(rctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11).
				WithMarginTop(1).
				WithMarginBottom(1).
				WithMarginLeft(1).
				WithMarginRight(1).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("printing pdf: %w", err)
	}
	r.logger.Debug("Rendered worksheet PDF", zap.Int("bytes", len(pdf)))
	return pdf, nil
}
