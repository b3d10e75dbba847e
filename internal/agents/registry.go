package agents

import (
	"log/slog"
	"sync"

	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

// Registry 按注册顺序保存智能体。
type Registry struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]Agent
	log    *slog.Logger
}

// NewRegistry 创建空的注册表。
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent), log: logger.Named("agents")}
}

// Register 注册智能体，ID 已存在时记录警告并覆盖。
func (r *Registry) Register(a Agent) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.agents[id]; exists {
		r.log.Warn("智能体已注册，将被覆盖", slog.String("agent_id", id))
	} else {
		r.order = append(r.order, id)
	}
	r.agents[id] = a
	r.log.Info("已注册智能体", slog.String("agent_id", id), slog.String("name", a.Name()))
}

// Get 返回指定 ID 的智能体，不存在时返回 nil。
func (r *Registry) Get(id string) Agent {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[id]
}

// All 按注册顺序返回全部智能体。
func (r *Registry) All() []Agent {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id])
	}
	return out
}

// Infos 返回全部智能体的公开描述。
func (r *Registry) Infos() []dto.Agent {
	all := r.All()
	out := make([]dto.Agent, 0, len(all))
	for _, a := range all {
		out = append(out, Describe(a))
	}
	return out
}

// Info 返回单个智能体的公开描述。
func (r *Registry) Info(id string) (dto.Agent, bool) {
	a := r.Get(id)
	if a == nil {
		return dto.Agent{}, false
	}
	return Describe(a), true
}

// RegisterBuiltins 注册内置的 yield、research、staking 与 bridge 智能体。
func RegisterBuiltins(r *Registry, chains ChainResolver) {
	r.Register(NewYieldAgent())
	r.Register(NewResearchAgent())
	r.Register(NewStakingAgent(chains))
	r.Register(NewBridgeAgent(chains))
}
