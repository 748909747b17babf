package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/jsonstore/internal/config"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize jsonstore configuration",
	Long:  `Runs an interactive wizard (or, with --defaults, writes the defaults) and generates a .jsonstore.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !initDefaults {
			_, err := config.RunWizard(cfgFile)
			return err
		}

		if _, err := os.Stat(cfgFile); err == nil {
			return fmt.Errorf("%s already exists", cfgFile)
		}
		if err := config.DefaultConfig().Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Configuration saved to %s\n", cfgFile)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "write the default configuration without prompting")
	rootCmd.AddCommand(initCmd)
}
