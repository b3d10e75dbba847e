package chat

import (
	"fmt"
	"strings"
)

const regularPrompt = `You are a friendly assistant! Keep your responses concise and helpful.

When asked to write, create, or help with something, just do it directly. Don't ask clarifying questions unless absolutely necessary; make reasonable assumptions and proceed with the task.`

const titlePrompt = `Generate a very short chat title (2-5 words max) based on the user's message.
Rules:
- Maximum 30 characters
- No quotes, colons, hashtags, or markdown
- Just the topic or intent, not a full sentence
- If the message is a greeting like "hi" or "hello", respond with just "New conversation"`

// RequestHints 描述请求来源，未知字段保持为空。
type RequestHints struct {
	Latitude  string
	Longitude string
	City      string
	Country   string
}

func hintValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return "null"
	}
	return v
}

func (h RequestHints) prompt() string {
	return fmt.Sprintf("About the origin of user's request:\n- lat: %s\n- lon: %s\n- city: %s\n- country: %s",
		hintValue(h.Latitude), hintValue(h.Longitude), hintValue(h.City), hintValue(h.Country))
}

// buildSystemPrompt 组合系统提示词：智能体提示词或通用提示词，随后是链上上下文与请求来源。
func buildSystemPrompt(agentPrompt, agentContext string, hints RequestHints) string {
	sections := make([]string, 0, 3)
	if strings.TrimSpace(agentPrompt) != "" {
		sections = append(sections, agentPrompt)
	} else {
		sections = append(sections, regularPrompt)
	}
	if strings.TrimSpace(agentContext) != "" {
		sections = append(sections, agentContext)
	}
	sections = append(sections, hints.prompt())
	return strings.Join(sections, "\n\n")
}
