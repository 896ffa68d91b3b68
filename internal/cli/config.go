// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/config"
	"github.com/jeranaias/souq-assist/internal/ui/styles"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the configuration file",
		Long: `Show and edit the configuration file.

Keys use dotted TOML names, for example api.base_url or ui.theme.
Environment variables prefixed SOUQ_ override the file.`,
	}
	cmd.AddCommand(
		a.configShowCommand(),
		a.configPathCommand(),
		a.configInitCommand(),
		a.configGetCommand(),
		a.configSetCommand(),
	)
	return cmd
}

func (a *app) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd.OutOrStdout(), a.jsonMode, "config show", a.cfg, func() error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), a.cfg.String())
				return err
			})
		},
	}
}

func (a *app) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), a.jsonMode, "config path", map[string]string{"path": path}, func() error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			})
		},
	}
}

func (a *app) configInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return NewValidationError("config", path, "file exists, pass --force to overwrite")
			}
			if err := config.SaveTOML(config.Default(), path); err != nil {
				return NewCommandError("config", "init", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderInfo("Wrote "+path))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func (a *app) configGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Print one configuration value",
		Example: "  souq-assist config get api.base_url",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cfg.Get(args[0])
			if err != nil {
				return NewValidationError("key", args[0], err.Error())
			}
			return printResult(cmd.OutOrStdout(), a.jsonMode, "config get", map[string]interface{}{args[0]: value}, func() error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), value)
				return err
			})
		},
	}
}

func (a *app) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one value in the configuration file",
		Example: "  souq-assist config set ui.theme light",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.resolveConfigPath()
			if err != nil {
				return err
			}

			// Edit the file's own values so environment overrides are not
			// written back.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromPath(path); err != nil {
					return err
				}
			} else if !errors.Is(statErr, os.ErrNotExist) {
				return statErr
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return NewValidationError("key", args[0], err.Error())
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return NewCommandError("config", "set", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderInfo(fmt.Sprintf("%s = %s", args[0], args[1])))
			return nil
		},
	}
}
