package main

import (
	"fmt"
	"net/http"

	"github.com/sentineldb/sentinel/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open a store and expose its Prometheus metrics and health endpoints",
	Long: `Opens the store (taking the advisory root lock for as long as this
process runs) and serves /metrics, /health, /ready, and /live until
interrupted. Useful for running Sentinel as a long-lived embedder
process rather than invoking the CLI once per operation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		storePath, _ := cmd.Flags().GetString("path")
		addr, _ := cmd.Flags().GetString("addr")

		s, err := openStore(cmd, storePath)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("store", true, "open")
		metrics.RegisterComponent("wal", true, "bound to store")

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())

		fmt.Printf("✓ Store open: %s\n", storePath)
		fmt.Printf("✓ Serving metrics and health endpoints on http://%s\n", addr)
		return http.ListenAndServe(addr, mux)
	},
}

func init() {
	serveCmd.Flags().String("path", "", "Store root path")
	serveCmd.Flags().String("passphrase", "", "Passphrase gating the signing key")
	serveCmd.Flags().String("addr", "127.0.0.1:9090", "Address to serve /metrics and /health on")
	_ = serveCmd.MarkFlagRequired("path")
}
