package app

import (
	"github.com/m3rciful/supportbot/core/cmd"
	coreconfig "github.com/m3rciful/supportbot/core/config"
)

// Config is the application configuration.
type Config struct {
	*coreconfig.Config
}

// CoreConfig implements cmd.ConfigCarrier.
func (c Config) CoreConfig() *coreconfig.Config { return c.Config }

// LoadConfig reads the YAML file at path with environment overrides.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return Config{Config: cfg}, nil
}
