package autopilot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/status"
)

// completeWorksheet downloads every instruction PDF, has the model write the
// worksheet and saves it. It never fills the page and always ends the loop.
func (d *Dispatcher) completeWorksheet(ctx context.Context, act activity) (Transition, error) {
	var urls []string
	if err := act.frame.Evaluate(ctx, jsCollectHrefs, &urls, SelPDFLinks); err != nil {
		return Stop, fmt.Errorf("collecting instruction links: %w", err)
	}

	d.settle(act, status.Pending, fmt.Sprintf("Downloading %d files", len(urls)), "")
	files, err := d.downloadAll(ctx, urls)
	if err != nil {
		return Stop, err
	}
	d.logger.Info("Downloaded instruction files.", zap.Int("count", len(files)))

	if d.cfg.SaveInstructions {
		dir := filepath.Dir(d.cfg.OutputPath)
		for _, f := range files {
			if err := writeFile(filepath.Join(dir, f.Name), f.Data); err != nil {
				d.logger.Warn("Could not save instruction file.", zap.String("file", f.Name), zap.Error(err))
			}
		}
	}

	d.settle(act, status.Pending, "Generating worksheet response", "")
	text, err := d.llm.GenerateText(ctx, llmclient.TextRequest{
		System: WorksheetSystemPrompt(d.cfg.Student),
		User:   worksheetUserText,
		Files:  files,
	})
	if err != nil {
		return Stop, fmt.Errorf("generating worksheet response: %w", err)
	}

	if err := writeFile(d.cfg.OutputPath, []byte(text)); err != nil {
		return Stop, fmt.Errorf("saving worksheet response: %w", err)
	}
	if d.cfg.RenderPDF && d.renderer != nil {
		d.renderWorksheet(ctx, text)
	}

	d.settle(act, status.Success, "Worksheet completed", d.cfg.OutputPath)
	d.logger.Info("Worksheet response saved.", zap.String("path", d.cfg.OutputPath))
	return Stop, nil
}

// downloadAll fetches every URL concurrently. One failure fails the batch.
func (d *Dispatcher) downloadAll(ctx context.Context, urls []string) ([]llmclient.File, error) {
	files := make([]llmclient.File, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	for i, u := range urls {
		g.Go(func() error {
			data, err := d.downloader.Download(gctx, u)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", u, err)
			}
			files[i] = llmclient.File{
				Name:      fmt.Sprintf("instructions-pt%d.pdf", i),
				MediaType: "application/pdf",
				Data:      data,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (d *Dispatcher) renderWorksheet(ctx context.Context, markdown string) {
	pdf, err := d.renderer.RenderPDF(ctx, markdown)
	if err != nil {
		d.logger.Warn("Could not render worksheet PDF.", zap.Error(err))
		return
	}
	path := strings.TrimSuffix(d.cfg.OutputPath, filepath.Ext(d.cfg.OutputPath)) + ".pdf"
	if err := writeFile(path, pdf); err != nil {
		d.logger.Warn("Could not save worksheet PDF.", zap.String("path", path), zap.Error(err))
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
