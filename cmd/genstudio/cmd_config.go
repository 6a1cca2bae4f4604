package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/genstudio/src/config"
)

// ConfigCmd shows and edits configuration
type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" default:"1" help:"Show the effective configuration"`
	Get  ConfigGetCmd  `cmd:"" help:"Get a configuration value"`
	Set  ConfigSetCmd  `cmd:"" help:"Set a configuration value in a config file"`
	Keys ConfigKeysCmd `cmd:"" help:"List configuration keys"`
	Path ConfigPathCmd `cmd:"" help:"Show configuration file locations"`
}

// ConfigShowCmd prints the merged configuration
type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	out := cli.configOutput(cfg)
	return out.printJSON(cfg)
}

// ConfigGetCmd prints one value
type ConfigGetCmd struct {
	Key string `arg:"" help:"Dotted key, e.g. api.base_url"`
}

func (c *ConfigGetCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	value, err := config.Get(cfg, c.Key)
	if err != nil {
		return &configError{err: err}
	}
	out := cli.configOutput(cfg)
	return out.emit(value, func() string {
		return fmt.Sprintf("%v\n", value)
	})
}

// ConfigSetCmd writes one value into the user config, or the project config
// with --project
type ConfigSetCmd struct {
	Key     string `arg:"" help:"Dotted key, e.g. generation.default_count"`
	Value   string `arg:"" help:"New value"`
	Project bool   `help:"Write to the project config instead of the user config"`
}

func (c *ConfigSetCmd) Run(ctx context.Context, cli *CLI) error {
	e := cli.environment()

	path := e.precedence.UserConfig
	if cli.ConfigFile != "" {
		path = cli.ConfigFile
	}
	if c.Project {
		path = e.precedence.ProjectConfig
	}

	err := cli.loader().UpdateFile(path, func(cfg *config.Config) error {
		return config.Set(cfg, c.Key, c.Value)
	})
	if err != nil {
		return &configError{err: err}
	}

	fmt.Fprintf(e.stdout, "set %s in %s\n", c.Key, path)
	return nil
}

// ConfigKeysCmd lists every key
type ConfigKeysCmd struct{}

func (c *ConfigKeysCmd) Run(cli *CLI) error {
	fmt.Fprintln(cli.environment().stdout, strings.Join(config.Keys(), "\n"))
	return nil
}

// ConfigPathCmd lists the config file locations in load order
type ConfigPathCmd struct{}

func (c *ConfigPathCmd) Run(cli *CLI) error {
	e := cli.environment()
	p := e.precedence
	if cli.ConfigFile != "" {
		p.UserConfig = cli.ConfigFile
	}
	fmt.Fprintf(e.stdout, "system:  %s\nuser:    %s\nproject: %s\nenv:     %s_*\n",
		p.SystemConfig, p.UserConfig, p.ProjectConfig, p.EnvironmentPrefix)
	if found, err := cli.loader().FindConfigFile(); err == nil {
		fmt.Fprintf(e.stdout, "active:  %s\n", found)
	}
	return nil
}

func (cli *CLI) configOutput(cfg *config.Config) *output {
	e := cli.environment()
	return newOutput(e.stdout, cfg.Output, e.isTTY(e.stdout))
}
