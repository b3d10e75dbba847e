package llm

import "context"

// Role 表示消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 是发送给大模型的一条对话消息。
type Message struct {
	Role    Role
	Content string
}

// Request 描述一次推理请求。Model 为空时使用客户端默认模型。
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Usage 统计 token 消耗。
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Response 是推理得到的完整输出。
type Response struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
}

// Delta 是流式输出中的一个增量片段。
type Delta struct {
	Text string
}

// Client 定义了调用大模型的统一接口。
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	// Stream 逐段回调 fn，fn 返回错误时立即终止并返回该错误。
	Stream(ctx context.Context, req Request, fn func(Delta) error) (*Response, error)
}

// LastUserMessage 返回请求中最后一条用户消息的内容。
func (r Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
