package main

import (
	"scribed/internal/config"
)

// commandContext carries lazily loaded configuration shared by subcommands.
type commandContext struct {
	configFlag *string

	cfg        *config.Config
	configPath string
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	path := ""
	if c.configFlag != nil {
		path = *c.configFlag
	}
	cfg, resolvedPath, _, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.configPath = resolvedPath
	return cfg, nil
}
