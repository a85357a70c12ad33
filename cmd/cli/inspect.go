package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var inspectBaseURL string

var inspectCmd = &cobra.Command{
	Use:   "inspect route <method> <path>",
	Short: "Print the route and rules that would match a (method, path)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] != "route" {
			return fmt.Errorf("unknown inspect target %q (only \"route\" is supported)", args[0])
		}
		method, path := args[1], args[2]

		q := url.Values{}
		q.Set("method", method)
		q.Set("path", path)
		reqURL := inspectBaseURL + "/admin/inspect/route?" + q.Encode()

		client := &http.Client{Timeout: 10 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
		resp, err := client.Get(reqURL)
		if err != nil {
			return fmt.Errorf("inspect request failed: %w", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		var pretty map[string]interface{}
		if json.Unmarshal(body, &pretty) == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			return nil
		}
		fmt.Printf("%d %s\n", resp.StatusCode, body)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectBaseURL, "url", "http://127.0.0.1:8080", "base URL of the running accessguard instance")
	rootCmd.AddCommand(inspectCmd)
}
