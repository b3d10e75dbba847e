// Package echo 提供一个离线的大模型实现，按词回显用户输入，用于开发环境与测试。
package echo

import (
	"context"
	"strings"

	"DeFi-Agent/internal/llm"
)

const fallbackReply = "Hello from DeFi Agent. How can I help you today?"

// Client 是确定性的 llm.Client 实现。
type Client struct {
	model string
}

// New 创建回显客户端。
func New() *Client {
	return &Client{model: "echo"}
}

func (c *Client) reply(req llm.Request) string {
	text := strings.TrimSpace(req.LastUserMessage())
	if text == "" {
		return fallbackReply
	}
	return text
}

// Generate 返回最后一条用户消息。
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := c.reply(req)
	return &llm.Response{Text: text, Model: c.model, FinishReason: "stop"}, nil
}

// Stream 按词输出回复。
func (c *Client) Stream(ctx context.Context, req llm.Request, fn func(llm.Delta) error) (*llm.Response, error) {
	text := c.reply(req)
	words := strings.Fields(text)
	for i, word := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i < len(words)-1 {
			word += " "
		}
		if err := fn(llm.Delta{Text: word}); err != nil {
			return nil, err
		}
	}
	return &llm.Response{Text: strings.Join(words, " "), Model: c.model, FinishReason: "stop"}, nil
}

var _ llm.Client = (*Client)(nil)
