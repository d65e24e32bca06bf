// File: cmd/serve.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/internal/config"
	"github.com/xkilldash9x/pilot-cli/internal/observability"
	"github.com/xkilldash9x/pilot-cli/internal/service"
)

// newServeCmd creates the `serve` command, which exposes the session engine
// over HTTP until interrupted.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to viper keys so command-line values override the
			// config file and environment with the right precedence.
			return viper.BindPFlag("server.address", cmd.Flags().Lookup("address"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg := config.Get()
			if err := viper.Unmarshal(cfg); err != nil {
				return fmt.Errorf("failed to re-unmarshal config with flag overrides: %w", err)
			}

			components, err := service.NewComponents(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			server := service.NewServer(cfg.Server, components.Sessions, logger)
			logger.Info("Serving session API.", zap.String("address", cfg.Server.Address))
			if err := server.ListenAndServe(ctx); err != nil {
				return fmt.Errorf("http shell exited: %w", err)
			}
			return nil
		},
	}

	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")
	return serveCmd
}
