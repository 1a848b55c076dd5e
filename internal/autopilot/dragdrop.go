package autopilot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
)

var errNoColumns = errors.New("drag-and-drop activity has no labelled columns")

// Pauses of the synthesized drag gesture.
const (
	dragHover   = 100 * time.Millisecond
	dragPress   = 200 * time.Millisecond
	dragTravel  = 300 * time.Millisecond
	dragRelease = 200 * time.Millisecond
	dragBetween = 500 * time.Millisecond
	dragSteps   = 10
)

// completeDragDrop sorts tiles into columns as the model assigns them.
// Individual tiles that cannot be moved are logged and skipped.
func (d *Dispatcher) completeDragDrop(ctx context.Context, act activity, previewEl Element, preview Frame) (Transition, error) {
	container, err := requireElement(ctx, preview, SelContentContainer, d.wait(d.timeouts.Default))
	if err != nil {
		return Stop, err
	}
	raw, err := container.Text(ctx)
	if err != nil {
		return Stop, fmt.Errorf("reading question text: %w", err)
	}
	text := NormalizeWhitespace(raw)
	gov := NewGovernor(d.clock, RequiredDwell(text, d.perWord)).Start()

	columns, names, err := d.dropTargets(ctx, preview)
	if err != nil {
		return Stop, err
	}
	if len(names) == 0 {
		return Stop, errNoColumns
	}
	tiles, err := d.tiles(ctx, preview)
	if err != nil {
		return Stop, err
	}
	d.logger.Info("Detected drag-and-drop layout.", zap.Strings("columns", names), zap.Int("tiles", len(tiles.order)))

	if previewEl == nil {
		d.logger.Error("Preview element not found, cannot drag tiles.")
		return Stop, nil
	}

	var schema llmclient.Schema
	for _, t := range tiles.order {
		schema.Add(llmclient.Field{Name: t, Kind: llmclient.KindEnum, Options: names})
	}
	shot, err := d.screenshot(ctx, previewEl)
	if err != nil {
		return Stop, err
	}
	answers, err := d.llm.GenerateObject(ctx, llmclient.ObjectRequest{
		Prompt: DragDropPrompt(text),
		Image:  shot,
		Schema: schema,
	})
	if err != nil {
		return Stop, fmt.Errorf("generating tile assignment: %w", err)
	}
	if err := gov.Wait(ctx); err != nil {
		return Stop, err
	}

	for _, tile := range schema.Names() {
		column, _ := answers[tile].(string)
		log := d.logger.With(zap.String("tile", tile), zap.String("column", column))

		target, ok := columns[column]
		if !ok {
			log.Warn("Could not find column for tile.")
			continue
		}
		if err := d.dragTile(ctx, preview, tiles.byText[tile], target); err != nil {
			if ctx.Err() != nil {
				return Stop, ctx.Err()
			}
			log.Warn("Failed to drag tile.", zap.Error(err))
			continue
		}
		log.Debug("Dropped tile.")
		if err := d.clock.Sleep(ctx, dragBetween); err != nil {
			return Stop, err
		}
	}
	return d.finishQuestion(ctx, act, preview)
}

// dropTargets maps each column label to a selector for its drop container.
// The container is tagged with a class so it can be found again later.
func (d *Dispatcher) dropTargets(ctx context.Context, preview Frame) (map[string]string, []string, error) {
	labels, err := preview.QueryAll(ctx, SelColumnLabels)
	if err != nil {
		return nil, nil, fmt.Errorf("querying column labels: %w", err)
	}
	targets := make(map[string]string, len(labels))
	var names []string
	for i, label := range labels {
		text, err := label.Text(ctx)
		if err != nil || text == "" {
			continue
		}
		class := fmt.Sprintf("dd-col-%d", i)
		var tagged bool
		if err := label.Call(ctx, jsTagDropContainer, &tagged, class); err != nil || !tagged {
			continue
		}
		if _, seen := targets[text]; !seen {
			names = append(names, text)
		}
		targets[text] = "." + class
	}
	return targets, names, nil
}

type tileSet struct {
	byText map[string]Element
	order  []string
}

func (d *Dispatcher) tiles(ctx context.Context, preview Frame) (tileSet, error) {
	els, err := preview.QueryAll(ctx, SelTiles)
	if err != nil {
		return tileSet{}, fmt.Errorf("querying tiles: %w", err)
	}
	set := tileSet{byText: make(map[string]Element, len(els))}
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil || text == "" {
			continue
		}
		if _, seen := set.byText[text]; !seen {
			set.order = append(set.order, text)
		}
		set.byText[text] = el
	}
	return set, nil
}

func (d *Dispatcher) dragTile(ctx context.Context, preview Frame, tile Element, columnSelector string) error {
	column, err := preview.Query(ctx, columnSelector)
	if err != nil {
		return err
	}
	if column == nil {
		return &RequiredElementError{Selector: columnSelector, Err: errNoMatch}
	}
	from, err := d.pageCoordinates(ctx, tile)
	if err != nil {
		return fmt.Errorf("locating tile: %w", err)
	}
	to, err := d.pageCoordinates(ctx, column)
	if err != nil {
		return fmt.Errorf("locating column: %w", err)
	}

	steps := []func() error{
		func() error { return d.page.MouseMove(ctx, from.X, from.Y, 1) },
		func() error { return d.clock.Sleep(ctx, dragHover) },
		func() error { return d.page.MouseDown(ctx) },
		func() error { return d.clock.Sleep(ctx, dragPress) },
		func() error { return d.page.MouseMove(ctx, to.X, to.Y, dragSteps) },
		func() error { return d.clock.Sleep(ctx, dragTravel) },
		func() error { return d.page.MouseUp(ctx) },
		func() error { return d.clock.Sleep(ctx, dragRelease) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// pageCoordinates translates the center of el, which lives inside the stage
// frame, into top-level page coordinates.
func (d *Dispatcher) pageCoordinates(ctx context.Context, el Element) (Point, error) {
	stage, err := d.page.Query(ctx, SelStageFrame)
	if err != nil {
		return Point{}, err
	}
	if stage == nil {
		return Point{}, &RequiredElementError{Selector: SelStageFrame, Err: errNoMatch}
	}
	offset, err := stage.Rect(ctx)
	if err != nil {
		return Point{}, err
	}
	r, err := el.Rect(ctx)
	if err != nil {
		return Point{}, err
	}
	return ToPageCoordinates(Point{X: offset.X, Y: offset.Y}, r), nil
}
