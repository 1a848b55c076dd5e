package autopilot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/status"
)

// completeQuestion answers an interactive question: it extracts the blanks,
// asks the model to fill them, holds back until the dwell time has passed and
// then applies the answers.
func (d *Dispatcher) completeQuestion(ctx context.Context, act activity) (Transition, error) {
	previewEl, err := probeElement(ctx, act.frame, SelPreviewFrame, d.wait(d.timeouts.Default))
	if err != nil {
		return Stop, err
	}
	preview := act.frame
	if previewEl != nil {
		if f, err := previewEl.ContentFrame(ctx); err == nil && f != nil {
			preview = f
		}
	}

	var removed int
	if err := act.frame.Evaluate(ctx, jsRemoveAll, &removed, SelInvisibleOverlay); err != nil {
		d.logger.Debug("No interfering overlay removed.", zap.Error(err))
	}

	link, err := preview.Query(ctx, SelInstructionLink)
	if err != nil {
		return Stop, fmt.Errorf("querying instruction link: %w", err)
	}
	if link != nil {
		d.settle(act, status.Pending, "Instruction link detected", "This activity has to be completed manually")
		d.logger.Info("Instruction link detected, leaving the activity for the student.")
		return Stop, nil
	}

	columns, err := preview.Query(ctx, SelDragDropColumns)
	if err != nil {
		return Stop, fmt.Errorf("querying drag-and-drop columns: %w", err)
	}
	if columns != nil {
		return d.completeDragDrop(ctx, act, previewEl, preview)
	}

	container, err := requireElement(ctx, preview, SelContentContainer, d.wait(d.timeouts.Default))
	if err != nil {
		return Stop, err
	}
	raw, err := container.Text(ctx)
	if err != nil {
		return Stop, fmt.Errorf("reading question text: %w", err)
	}
	text := NormalizeWhitespace(raw)

	if d.cfg.AnnotateInputs {
		if err := Annotate(ctx, preview, container); err != nil {
			d.logger.Warn("Could not annotate inputs.", zap.Error(err))
		}
	}
	descs, err := Extract(ctx, container)
	if err != nil {
		return Stop, err
	}
	d.logger.Debug("Extracted inputs.", zap.String("question", text), zap.Int("inputs", len(descs)))

	if len(descs) == 0 {
		return d.completeNoInput(ctx, act)
	}

	gov := NewGovernor(d.clock, RequiredDwell(text, d.perWord)).Start()
	schema := BuildSchema(descs)

	shotTarget := previewEl
	if shotTarget == nil {
		shotTarget = container
	}
	shot, err := d.screenshot(ctx, shotTarget)
	if err != nil {
		return Stop, err
	}

	answers, err := d.llm.GenerateObject(ctx, llmclient.ObjectRequest{
		Prompt:          QuestionPrompt(text),
		Image:           shot,
		Schema:          schema,
		ReasoningEffort: llmclient.EffortLow,
	})
	if err != nil {
		return Stop, fmt.Errorf("generating answers: %w", err)
	}
	d.logger.Debug("Generated answers.", zap.Any("answers", answers))

	if err := gov.Wait(ctx); err != nil {
		return Stop, err
	}
	if err := d.applyAnswers(ctx, act, container, descs, schema, answers); err != nil {
		return Stop, err
	}
	return d.finishQuestion(ctx, act, preview)
}

// completeNoInput handles listen-only activities: give the audio a chance to
// start, then wait for the advance control to pulse and click it.
func (d *Dispatcher) completeNoInput(ctx context.Context, act activity) (Transition, error) {
	audio, err := probeElement(ctx, act.frame, SelAudioButton, WaitOptions{Timeout: d.timeouts.AudioButton, Visible: true})
	if err != nil {
		return Stop, err
	}
	d.logger.Debug("No inputs found.", zap.Bool("audio", audio != nil))

	if err := waitForFunction(ctx, act.frame, d.clock, d.timeouts.Default, jsFrameRightDimmed, SelFrameRight); err != nil {
		return Stop, &RequiredElementError{Selector: SelFrameRight, Err: err}
	}
	if err := clickNow(ctx, act.frame, SelFrameRight); err != nil {
		return Stop, err
	}
	return NextActivity, nil
}

func (d *Dispatcher) screenshot(ctx context.Context, el Element) ([]byte, error) {
	shot, err := el.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing question screenshot: %w", err)
	}
	if d.cfg.ScreenshotPath != "" {
		if err := writeFile(d.cfg.ScreenshotPath, shot); err != nil {
			d.logger.Warn("Could not save screenshot.", zap.String("path", d.cfg.ScreenshotPath), zap.Error(err))
		}
	}
	return shot, nil
}

// applyAnswers writes each answer into its control, in schema order.
func (d *Dispatcher) applyAnswers(ctx context.Context, act activity, container Element, descs []Descriptor, schema llmclient.Schema, answers map[string]any) error {
	for _, key := range schema.Names() {
		value, ok := answers[key]
		if !ok {
			continue
		}
		desc, ok := lookupDescriptor(descs, key)
		if !ok {
			continue
		}
		el, err := container.Query(ctx, desc.selector())
		if err != nil {
			return fmt.Errorf("querying input %d: %w", desc.Index, err)
		}
		if el == nil {
			d.logger.Warn("Input disappeared before it could be answered.", zap.Int("index", desc.Index))
			continue
		}

		switch desc.Type {
		case FieldSelect:
			str, _ := value.(string)
			if err := d.applySelect(ctx, el, str); err != nil {
				return err
			}
		case FieldCheckbox, FieldRadio:
			if on, _ := value.(bool); on {
				if err := el.Click(ctx); err != nil {
					return fmt.Errorf("clicking input %d: %w", desc.Index, err)
				}
			}
		default:
			str, _ := value.(string)
			if err := el.Type(ctx, str); err != nil {
				return fmt.Errorf("typing into input %d: %w", desc.Index, err)
			}
			if desc.Type == FieldTextarea {
				if err := clickNow(ctx, act.frame, SelCheckButton); err != nil {
					return err
				}
				if err := d.clock.Sleep(ctx, d.timeouts.FormSubmission); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// applySelect picks the option whose trimmed text equals value. No match
// selects the empty value.
func (d *Dispatcher) applySelect(ctx context.Context, el Element, value string) error {
	var optionValue *string
	if err := el.Call(ctx, jsOptionValue, &optionValue, value); err != nil {
		d.logger.Warn("Could not match select option.", zap.String("value", value), zap.Error(err))
	}
	v := ""
	if optionValue != nil {
		v = *optionValue
	} else {
		d.logger.Warn("No select option matches the answer.", zap.String("value", value))
	}
	if err := el.Select(ctx, v); err != nil {
		return fmt.Errorf("selecting option: %w", err)
	}
	return nil
}
