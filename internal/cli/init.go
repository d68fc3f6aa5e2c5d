package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/gdao/internal/paths"
	"github.com/mesh-intelligence/gdao/pkg/types"
)

// configFile is the structure init writes to config.yaml.
type configFile struct {
	ConnectTo     string   `yaml:"connect_to,omitempty"`
	Table         string   `yaml:"table,omitempty"`
	Fields        []string `yaml:"fields,omitempty"`
	IDField       string   `yaml:"id_field,omitempty"`
	IDStrategy    string   `yaml:"id_strategy,omitempty"`
	PageIndexBase int      `yaml:"page_index_base,omitempty"`
	DataDir       string   `yaml:"data_dir,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml from the current settings",
		Long: "Resolve the configuration from flags, environment and any existing config.yaml,\n" +
			"validate it and write it to config.yaml in the configuration directory.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.config.Validate(); err != nil {
				return err
			}
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			path := filepath.Join(configDir, configFileExt)
			if err := writeConfig(a.fs, path, a.config, a.flags.dataDir, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite a config.yaml holding a table definition")
	return cmd
}

// writeConfig stores cfg in path. A file that already names a table is kept
// unless force is set.
func writeConfig(fs afero.Fs, path string, cfg types.Config, dataDir string, force bool) error {
	if !force {
		data, err := afero.ReadFile(fs, path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read config: %w", err)
		}
		var existing configFile
		if err == nil && yaml.Unmarshal(data, &existing) == nil && existing.Table != "" {
			return fmt.Errorf("%w: %s already defines table %q, use --force", errUsage, path, existing.Table)
		}
	}

	out := configFile{
		ConnectTo:     cfg.ConnectTo,
		Table:         cfg.Table,
		Fields:        cfg.Fields,
		IDField:       cfg.IDField,
		IDStrategy:    cfg.IDStrategy,
		PageIndexBase: cfg.PageIndexBase,
		DataDir:       dataDir,
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
