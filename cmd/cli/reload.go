package cli

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var reloadBaseURL string
var reloadRuleID uint

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Trigger a rule-store reload against a running instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		url := reloadBaseURL + "/admin/reload"
		if reloadRuleID != 0 {
			url = fmt.Sprintf("%s/admin/reload/rule/%d", reloadBaseURL, reloadRuleID)
		}
		resp, err := client.Post(url, "application/json", nil)
		if err != nil {
			return fmt.Errorf("reload request failed: %w", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("%d %s\n", resp.StatusCode, body)
		if resp.StatusCode >= 300 {
			return fmt.Errorf("reload failed with status %d", resp.StatusCode)
		}
		return nil
	},
}

func init() {
	reloadCmd.Flags().StringVar(&reloadBaseURL, "url", "http://127.0.0.1:8080", "base URL of the running accessguard instance")
	reloadCmd.Flags().UintVar(&reloadRuleID, "rule", 0, "reload a single rule id instead of the full snapshot")
	rootCmd.AddCommand(reloadCmd)
}
