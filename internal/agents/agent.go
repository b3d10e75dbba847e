package agents

import (
	"context"
	"fmt"
	"strings"

	"DeFi-Agent/internal/web3"
	"DeFi-Agent/pkg/dto"
)

// Type 区分策略类与情报类智能体。
type Type string

const (
	TypeStrategy     Type = dto.AgentTypeStrategy
	TypeIntelligence Type = dto.AgentTypeIntelligence
)

// Agent 描述一个可在对话中选择的智能体。
type Agent interface {
	ID() string
	Name() string
	Description() []string
	Type() Type
	Icon() string
	SupportedChains() []string
	SystemPrompt() string
	// Context 返回附加到系统提示词之后的上下文，没有可补充的信息时返回空串。
	Context(ctx context.Context, walletAddress string) (string, error)
}

// ChainResolver 根据名称解析链客户端，空名称表示默认链。
type ChainResolver interface {
	Resolve(name string) (string, web3.Client, error)
}

// Describe 返回智能体的公开描述。
func Describe(a Agent) dto.Agent {
	return dto.Agent{
		ID:              a.ID(),
		Name:            a.Name(),
		Description:     append([]string(nil), a.Description()...),
		Type:            string(a.Type()),
		Icon:            a.Icon(),
		SupportedChains: append([]string(nil), a.SupportedChains()...),
	}
}

// profile 保存智能体的静态信息，具体智能体嵌入它即可实现大部分接口。
type profile struct {
	id          string
	name        string
	description []string
	kind        Type
	icon        string
	chains      []string
	prompt      string
}

func (p profile) ID() string                { return p.id }
func (p profile) Name() string              { return p.name }
func (p profile) Description() []string     { return p.description }
func (p profile) Type() Type                { return p.kind }
func (p profile) Icon() string              { return p.icon }
func (p profile) SupportedChains() []string { return p.chains }
func (p profile) SystemPrompt() string      { return p.prompt }

// chainUnavailable 是未配置链时写入上下文的提示。
const chainUnavailable = "Chain data is unavailable: no chain RPC endpoint is configured."

// resolveChain 优先使用 preferred 指定的链，找不到时退回默认链。
func resolveChain(chains ChainResolver, preferred string) (string, web3.Client, bool) {
	if chains == nil {
		return "", nil, false
	}
	if preferred != "" {
		if name, client, err := chains.Resolve(preferred); err == nil {
			return name, client, true
		}
	}
	name, client, err := chains.Resolve("")
	if err != nil {
		return "", nil, false
	}
	return name, client, true
}

// contextBuilder 逐行累积上下文。
type contextBuilder struct {
	lines []string
}

func (b *contextBuilder) add(format string, args ...any) {
	b.lines = append(b.lines, "- "+fmt.Sprintf(format, args...))
}

func (b *contextBuilder) String(title string) string {
	if len(b.lines) == 0 {
		return ""
	}
	return title + "\n" + strings.Join(b.lines, "\n")
}
