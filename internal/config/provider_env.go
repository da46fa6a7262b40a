package config

import (
	"context"
	"os"
)

// EnvVarProvider resolves secrets straight from the process environment.
type EnvVarProvider struct{}

// NewEnvVarProvider creates a provider that reads parameters from the environment.
func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{}
}

// GetParametersBatch omits keys that are not set.
func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := os.LookupEnv(key); ok {
			result[key] = val
		}
	}
	return result, nil
}
