package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphsearch/graphsearchd/internal/cli/output"
	"github.com/graphsearch/graphsearchd/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample graphsearchd configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/graphsearchd/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  graphsearchd init

  # Initialize with custom path
  graphsearchd init --config /etc/graphsearchd/config.yaml

  # Force overwrite existing config
  graphsearchd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	p := output.DefaultPrinter()
	p.Success(fmt.Sprintf("Configuration file created at: %s", configPath))
	p.Println("\nNext steps:")
	p.Println("  1. Edit the configuration file to customize your setup")
	p.Println("  2. Start the server with: graphsearchd start")
	p.Printf("  3. Or specify custom config: graphsearchd start --config %s\n", configPath)

	return nil
}
