package main

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"poppo/internal/config"
	"poppo/internal/logging"
	"poppo/internal/state"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	storeOnce sync.Once
	store     *state.Store
	storeErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureStore opens the state store once per invocation. CLI store activity
// logs at warn level to stderr so tables stay clean on stdout.
func (c *commandContext) ensureStore() (*state.Store, error) {
	c.storeOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.storeErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  "warn",
			Format: "console",
			Output: os.Stderr,
		})
		if err != nil {
			c.storeErr = err
			return
		}
		c.store, c.storeErr = state.Open(cfg, logger)
	})
	return c.store, c.storeErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
