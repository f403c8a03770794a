package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/niwalog/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd(), newConfigSetCmd(), newConfigPathCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if cc.Flags.JSON {
				return printJSON(cc.Out, cc.Cfg)
			}

			return config.RenderEffective(cc.Cfg, cc.Out)
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file and data directory paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			fmt.Fprintf(cc.Out, "config: %s\ndata:   %s\n", cc.Cfg.Path, cc.Cfg.DataDir)

			return nil
		},
	}
}

// splitKey splits "section.key".
func splitKey(s string) (section, key string, err error) {
	section, key, ok := strings.Cut(s, ".")
	if !ok || section == "" || key == "" || strings.Contains(key, ".") {
		return "", "", fmt.Errorf("key %q must look like section.key, for example location.timezone", s)
	}

	return section, key, nil
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Write one value to the config file",
		Long: "Write one value to the config file, creating the file when missing.\n" +
			"Works even when the current file does not load.",
		Example:     "  niwalog config set location.timezone Asia/Tokyo",
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			section, key, err := splitKey(args[0])
			if err != nil {
				return err
			}

			path := configPath(cc.Flags)

			if err := config.SetKey(path, section, key, args[1]); err != nil {
				return err
			}

			if _, err := config.Load(path); err != nil {
				return fmt.Errorf("%s was written but does not load: %w", path, err)
			}

			cc.Statusf("Set %s.%s in %s\n", section, key, path)

			return nil
		},
	}
}

// configPath picks the config file the same way config.Resolve does.
func configPath(flags CLIFlags) string {
	if flags.ConfigPath != "" {
		return flags.ConfigPath
	}

	if p := config.ReadEnvOverrides().ConfigPath; p != "" {
		return p
	}

	return config.DefaultConfigPath()
}
