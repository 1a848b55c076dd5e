package autopilot

import (
	"context"
	"fmt"
	"strconv"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
)

// FieldType is the variant of a form control inside a question.
type FieldType string

const (
	FieldInput    FieldType = "input"
	FieldTextarea FieldType = "textarea"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldSelect   FieldType = "select"
)

// Descriptor is the extracted shape of one form control. Index is its
// position among the container's input, select and textarea elements and is
// stable while one activity is being processed.
type Descriptor struct {
	Index   int       `json:"index"`
	Type    FieldType `json:"type"`
	Label   string    `json:"label,omitempty"`
	Options []string  `json:"options,omitempty"`
}

func (d Descriptor) toggle() bool {
	return d.Type == FieldCheckbox || d.Type == FieldRadio
}

// Key is the answer-schema field name: the label for checkboxes and radios,
// the decimal index otherwise.
func (d Descriptor) Key() string {
	if d.toggle() {
		return d.Label
	}
	return strconv.Itoa(d.Index)
}

// MarkerClass is the CSS class that identifies the control in the DOM.
func (d Descriptor) MarkerClass() string {
	return "input-id-" + strconv.Itoa(d.Index)
}

// selector re-finds the control beneath the question container.
func (d Descriptor) selector() string {
	tag := string(d.Type)
	if d.toggle() {
		tag = "input"
	}
	return tag + "." + d.MarkerClass()
}

// BuildSchema derives the structured-output schema from descriptors. Two
// toggles that share a label collapse into one field; the first one wins.
func BuildSchema(descs []Descriptor) llmclient.Schema {
	var s llmclient.Schema
	for _, d := range descs {
		f := llmclient.Field{Name: d.Key(), Kind: llmclient.KindString}
		switch d.Type {
		case FieldCheckbox, FieldRadio:
			f.Kind = llmclient.KindBoolean
		case FieldSelect:
			if opts := dedupe(d.Options); len(opts) > 0 {
				f.Kind = llmclient.KindEnum
				f.Options = opts
			}
		}
		s.Add(f)
	}
	return s
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// lookupDescriptor resolves an answer key to the first descriptor whose index
// or toggle label matches it.
func lookupDescriptor(descs []Descriptor, key string) (Descriptor, bool) {
	for _, d := range descs {
		if strconv.Itoa(d.Index) == key || (d.toggle() && d.Label == key) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Annotate makes inline fields visible and draws a numbered badge beside
// every non-toggle control so a screenshot shows which blank is which.
func Annotate(ctx context.Context, frame Frame, container Element) error {
	if err := frame.Evaluate(ctx, jsOverflowVisible, nil, SelInlineField); err != nil {
		return fmt.Errorf("showing inline fields: %w", err)
	}
	var n int
	if err := container.Call(ctx, jsAnnotate, &n, SelFormControls); err != nil {
		return fmt.Errorf("annotating inputs: %w", err)
	}
	return nil
}

// Extract returns one descriptor per form control in DOM order and tags each
// control with its marker class.
func Extract(ctx context.Context, container Element) ([]Descriptor, error) {
	var descs []Descriptor
	if err := container.Call(ctx, jsExtract, &descs, SelFormControls); err != nil {
		return nil, fmt.Errorf("extracting inputs: %w", err)
	}
	return descs, nil
}
