package llmclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockClient struct{ mock.Mock }

func (m *mockClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockClient) GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error) {
	args := m.Called(ctx, req)
	obj, _ := args.Get(0).(map[string]any)
	return obj, args.Error(1)
}

func (m *mockClient) Close() error { return m.Called().Error(0) }

func TestRateLimitedClient_Delegates(t *testing.T) {
	next := new(mockClient)
	c := NewRateLimitedClient(next, 0, zap.NewNop())
	ctx := context.Background()

	textReq := TextRequest{System: "s", User: "u"}
	next.On("GenerateText", ctx, textReq).Return("answer", nil)
	objReq := ObjectRequest{Prompt: "p"}
	next.On("GenerateObject", ctx, objReq).Return(map[string]any{"0": "x"}, nil)
	next.On("Close").Return(nil)

	text, err := c.GenerateText(ctx, textReq)
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	obj, err := c.GenerateObject(ctx, objReq)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"0": "x"}, obj)

	require.NoError(t, c.Close())
	next.AssertExpectations(t)
}

func TestRateLimitedClient_PropagatesErrors(t *testing.T) {
	next := new(mockClient)
	c := NewRateLimitedClient(next, 0, zap.NewNop())
	boom := errors.New("boom")
	next.On("GenerateText", mock.Anything, mock.Anything).Return("", boom)

	_, err := c.GenerateText(context.Background(), TextRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestRateLimitedClient_HonorsContextWhileWaiting(t *testing.T) {
	next := new(mockClient)
	// One request per minute with a burst of one: the second call has to wait.
	c := NewRateLimitedClient(next, 1, zap.NewNop())
	next.On("GenerateObject", mock.Anything, mock.Anything).Return(map[string]any{}, nil).Once()

	_, err := c.GenerateObject(context.Background(), ObjectRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GenerateObject(ctx, ObjectRequest{})
	require.Error(t, err)
	next.AssertNumberOfCalls(t, "GenerateObject", 1)
}
