package web3

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainTypeEVM 是目前唯一支持的链类型。
const ChainTypeEVM = "evm"

// ChainDefinitions 对应 configs/chains.yaml。
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition 描述一条可供智能体读取的链。
type ChainDefinition struct {
	Type        string `yaml:"type"`
	RPCURL      string `yaml:"rpc_url"`
	ChainID     string `yaml:"chain_id"`
	Description string `yaml:"description"`
}

// Names 按字母序返回已定义的链名称。
func (d ChainDefinitions) Names() []string {
	names := make([]string, 0, len(d.Chains))
	for name := range d.Chains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadChainDefinitions 读取并校验链配置。路径为空或文件不存在时返回空集合，
// 缺省 type 视为 evm，其他类型与缺少 rpc_url 的条目视为配置错误。
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	defs := ChainDefinitions{Chains: map[string]ChainDefinition{}}
	if strings.TrimSpace(path) == "" {
		return defs, nil
	}

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defs, nil
	}
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}
	var raw ChainDefinitions
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}

	for name, chain := range raw.Chains {
		chain.Type = strings.ToLower(strings.TrimSpace(chain.Type))
		if chain.Type == "" {
			chain.Type = ChainTypeEVM
		}
		if chain.Type != ChainTypeEVM {
			return ChainDefinitions{}, fmt.Errorf("链 %s 使用了不支持的类型 %s", name, chain.Type)
		}
		chain.RPCURL = strings.TrimSpace(chain.RPCURL)
		if chain.RPCURL == "" {
			return ChainDefinitions{}, fmt.Errorf("链 %s 缺少 rpc_url", name)
		}
		defs.Chains[name] = chain
	}
	return defs, nil
}
