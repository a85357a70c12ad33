// Package cli is the Cobra command tree for accessguard's operator tooling:
// serve (run the process in-line), reload (trigger a control-plane
// refresh against a running instance), and inspect (read-only route/rule
// debugging) — grounded on the teacher's cmd/cli/root.go.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "accessguardctl",
	Short: "Operate the accessguard access-control process",
	Long:  "accessguardctl runs the access-control server and offers operator commands against a running instance: triggering a rule-store reload and inspecting the currently matched route and rules for a path.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println("error reading config file:", err)
		}
	}
}
