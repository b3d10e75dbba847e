package defiagent

import "github.com/kelseyhightower/envconfig"

// EnvConfig is the client environment. Values are read as plain strings.
type EnvConfig struct {
	APIBaseURL  string `envconfig:"API_BASE_URL"`
	ChainRPCURL string `envconfig:"CHAIN_RPC_URL"`
	ChainID     string `envconfig:"CHAIN_ID"`
}

// LoadEnv reads EnvConfig from the process environment.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	err := envconfig.Process("", &cfg)
	return cfg, err
}
