package llm

import "strings"

// Model ids understood by the chat endpoint.
const (
	ChatModelID          = "chat-model"
	ChatModelReasoningID = "chat-model-reasoning"
	TitleModelID         = "title-model"

	DefaultModel   = "gpt-4o-mini"
	ReasoningModel = "o4-mini"
)

// ChatModel 描述一个可供前端选择的模型。
type ChatModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Models 列出可选模型。
var Models = []ChatModel{
	{ID: ChatModelID, Name: "Chat model", Description: "Primary model for all-purpose chat"},
	{ID: ChatModelReasoningID, Name: "Reasoning model", Description: "Uses advanced reasoning"},
}

// ResolveModel 将前端的模型 ID 映射为提供方的模型名称。fallback 为空时使用 DefaultModel。
func ResolveModel(id, fallback string) string {
	if fallback == "" {
		fallback = DefaultModel
	}
	id = strings.TrimSpace(id)
	switch {
	case id == ChatModelReasoningID:
		return ReasoningModel
	case strings.HasPrefix(id, "openai/"):
		if name := strings.TrimPrefix(id, "openai/"); name != "" {
			return name
		}
	}
	return fallback
}
