// Package knowledge 提供按关键词检索的静态参考资料，聊天服务把命中的条目附加到系统提示词中。
package knowledge

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider 定义知识库检索的通用接口。
type Provider interface {
	Query(text, agentID string) []Snippet
}

// Snippet 描述可供大模型引用的一段知识。
type Snippet struct {
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	Keywords []string `yaml:"keywords"`
	// Agents 为空表示对所有会话生效，否则仅对列出的智能体生效。
	Agents []string `yaml:"agents"`
}

// StaticProvider 通过加载 YAML 文件提供静态知识检索能力。
type StaticProvider struct {
	items      []Snippet
	maxResults int
}

// NewStaticProvider 创建静态知识库实例。
func NewStaticProvider(items []Snippet, maxResults int) *StaticProvider {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &StaticProvider{items: items, maxResults: maxResults}
}

// LoadStaticProvider 从 YAML 文件加载知识条目。
func LoadStaticProvider(path string, maxResults int) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("知识库文件路径不能为空")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取知识库文件失败: %w", err)
	}
	var doc struct {
		Snippets []Snippet `yaml:"snippets"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("解析知识库文件失败: %w", err)
	}
	return NewStaticProvider(doc.Snippets, maxResults), nil
}

// Query 返回适用于 agentID 且关键词出现在 text 中的条目，最多 maxResults 条。
func (p *StaticProvider) Query(text, agentID string) []Snippet {
	if p == nil {
		return nil
	}
	text = strings.ToLower(text)
	results := make([]Snippet, 0, p.maxResults)
	for _, item := range p.items {
		if appliesTo(item, agentID) && matches(item, text) {
			results = append(results, item)
			if len(results) >= p.maxResults {
				break
			}
		}
	}
	return results
}

func appliesTo(snippet Snippet, agentID string) bool {
	if len(snippet.Agents) == 0 {
		return true
	}
	for _, id := range snippet.Agents {
		if strings.EqualFold(strings.TrimSpace(id), agentID) {
			return true
		}
	}
	return false
}

func matches(snippet Snippet, text string) bool {
	if len(snippet.Keywords) == 0 {
		return true
	}
	for _, keyword := range snippet.Keywords {
		normalized := strings.ToLower(strings.TrimSpace(keyword))
		if normalized != "" && strings.Contains(text, normalized) {
			return true
		}
	}
	return false
}

// Format 把命中的条目渲染为提示词片段，没有条目时返回空串。
func Format(snippets []Snippet) string {
	if len(snippets) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Reference notes:")
	for _, s := range snippets {
		fmt.Fprintf(&b, "\n- %s: %s", s.Title, strings.TrimSpace(s.Content))
	}
	return b.String()
}

var _ Provider = (*StaticProvider)(nil)
