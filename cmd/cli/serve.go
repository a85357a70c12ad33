package cli

import (
	"accessguard/internal/config"
	"accessguard/internal/server"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the accessguard HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if err := config.InitLogger(cfg); err != nil {
			logrus.Fatalf("failed to initialize logger: %v", err)
		}
		if err := server.Run(cfg); err != nil {
			logrus.Fatalf("server exited with error: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
