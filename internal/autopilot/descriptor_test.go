package autopilot

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/autopilot/internal/llmclient"
)

func TestBuildSchema(t *testing.T) {
	descs := []Descriptor{
		{Index: 0, Type: FieldInput},
		{Index: 1, Type: FieldSelect, Options: []string{"", "Red", "Blue", "Red"}},
		{Index: 2, Type: FieldCheckbox, Label: "Agree"},
		{Index: 3, Type: FieldRadio, Label: "Agree"},
		{Index: 4, Type: FieldTextarea},
		{Index: 5, Type: FieldSelect},
	}
	want := llmclient.Schema{Fields: []llmclient.Field{
		{Name: "0", Kind: llmclient.KindString},
		{Name: "1", Kind: llmclient.KindEnum, Options: []string{"", "Red", "Blue"}},
		{Name: "Agree", Kind: llmclient.KindBoolean},
		{Name: "4", Kind: llmclient.KindString},
		{Name: "5", Kind: llmclient.KindString},
	}}
	if diff := cmp.Diff(want, BuildSchema(descs)); diff != "" {
		t.Errorf("BuildSchema() mismatch (-want +got):\n%s", diff)
	}
}

func TestDescriptorKeysAndSelectors(t *testing.T) {
	tests := []struct {
		d        Descriptor
		key      string
		selector string
	}{
		{Descriptor{Index: 0, Type: FieldInput}, "0", "input.input-id-0"},
		{Descriptor{Index: 7, Type: FieldTextarea}, "7", "textarea.input-id-7"},
		{Descriptor{Index: 2, Type: FieldSelect}, "2", "select.input-id-2"},
		{Descriptor{Index: 3, Type: FieldCheckbox, Label: "B"}, "B", "input.input-id-3"},
		{Descriptor{Index: 4, Type: FieldRadio, Label: "C"}, "C", "input.input-id-4"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.key, tc.d.Key())
		assert.Equal(t, tc.selector, tc.d.selector())
	}
	assert.Equal(t, "input-id-12", Descriptor{Index: 12}.MarkerClass())
}

func TestLookupDescriptor(t *testing.T) {
	descs := []Descriptor{
		{Index: 0, Type: FieldCheckbox, Label: "1"},
		{Index: 1, Type: FieldInput},
		{Index: 2, Type: FieldRadio, Label: "Maybe"},
		{Index: 3, Type: FieldRadio, Label: "Maybe"},
	}

	d, ok := lookupDescriptor(descs, "1")
	require.True(t, ok)
	assert.Equal(t, 0, d.Index, "a toggle labelled like an index is found first")

	d, ok = lookupDescriptor(descs, "Maybe")
	require.True(t, ok)
	assert.Equal(t, 2, d.Index)

	_, ok = lookupDescriptor(descs, "9")
	assert.False(t, ok)
}

func TestExtract(t *testing.T) {
	rec := &recorder{}
	container := newElement(rec, "container")
	container.on(jsExtract, func(args ...any) (any, error) {
		require.Equal(t, []any{SelFormControls}, args)
		return []map[string]any{
			{"index": 0, "type": "select", "options": []string{"a", "b"}},
			{"index": 1, "type": "checkbox", "label": "Sure"},
			{"index": 2, "type": "input"},
		}, nil
	})

	got, err := Extract(context.Background(), container)
	require.NoError(t, err)
	want := []Descriptor{
		{Index: 0, Type: FieldSelect, Options: []string{"a", "b"}},
		{Index: 1, Type: FieldCheckbox, Label: "Sure"},
		{Index: 2, Type: FieldInput},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestAnnotateReportsScriptFailure(t *testing.T) {
	rec := &recorder{}
	frame := newScope(rec, "frame")
	container := newElement(rec, "container")
	container.on(jsAnnotate, func(...any) (any, error) { return nil, errors.New("detached") })

	err := Annotate(context.Background(), frame, container)
	assert.ErrorContains(t, err, "annotating inputs")
}
