package memory

import (
	"os"

	"gopkg.in/yaml.v3"
)

// AgentProfile holds per-agent model settings consulted when building the
// agents. Zero values leave the engine defaults in place.
type AgentProfile struct {
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// LoadAgentProfile loads the profile from <home>/agents/<agent>.yaml.
// Returns nil profile and nil error if the file is missing.
func LoadAgentProfile(home, agentName string) (*AgentProfile, error) {
	path := AgentProfilePath(home, agentName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p AgentProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveAgentProfile writes the profile to <home>/agents/<agent>.yaml.
func SaveAgentProfile(home, agentName string, p *AgentProfile) error {
	if err := os.MkdirAll(AgentsDir(home), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(AgentProfilePath(home, agentName), data, 0o644)
}
