package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/eringen/pubsplice"
	"github.com/eringen/pubsplice/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *pubsplice.Config
	configErr  error

	// options are passed to pubsplice.Open after the logger.
	options []pubsplice.Option
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*pubsplice.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = pubsplice.LoadConfig(path)
	})
	return c.config, c.configErr
}

// withPublisher opens the workspace for the duration of fn.
func (c *commandContext) withPublisher(cmd *cobra.Command, fn func(*pubsplice.Publisher) error) (err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	opts := append([]pubsplice.Option{pubsplice.WithLogger(logger)}, c.options...)
	p, err := pubsplice.Open(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, p.Close())
	}()
	return fn(p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
