package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/aigw/simplychat/cmd/simplychat/ask"
	servecmder "github.com/aigw/simplychat/cmd/simplychat/serve"
	"github.com/aigw/simplychat/internal/logger"
)

func NewRootCmd() *cobra.Command {
	var logLevel string

	serveCmd := servecmder.NewServeCmd()

	cmd := &cobra.Command{
		Use:           "simplychat",
		Short:         "Browser chat front-end for an AI gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts := logger.OptionsFromEnv()
			if logLevel != "" {
				opts.Level = logLevel
			}
			logger.Init(opts)
		},
		// Running without a subcommand serves the chat page.
		RunE: serveCmd.RunE,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides LOG_LEVEL")
	cmd.Flags().AddFlagSet(serveCmd.Flags())

	cmd.AddCommand(serveCmd)
	cmd.AddCommand(askcmder.NewAskCmd())

	return cmd
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
