package echo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/llm"
)

func TestStreamEmitsWords(t *testing.T) {
	client := New()
	var parts []string
	resp, err := client.Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "what is my balance"}},
	}, func(d llm.Delta) error {
		parts = append(parts, d.Text)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"what ", "is ", "my ", "balance"}, parts)
	assert.Equal(t, "what is my balance", resp.Text)
	assert.Equal(t, resp.Text, strings.Join(parts, ""))
}

func TestGenerateFallback(t *testing.T) {
	resp, err := New().Generate(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, resp.Text)
}

func TestStreamStopsOnCallbackError(t *testing.T) {
	_, err := New().Stream(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "a b c"}},
	}, func(llm.Delta) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
}
