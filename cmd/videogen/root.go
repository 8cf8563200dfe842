package main

import (
	"os"

	"github.com/spf13/cobra"

	"video-generator-service/internal/client"
)

const defaultServer = "http://localhost:8080"

func newRootCommand() *cobra.Command {
	server := os.Getenv("VIDEOGEN_SERVER")
	if server == "" {
		server = defaultServer
	}

	newClient := func() *client.Client { return client.New(server, nil) }

	rootCmd := &cobra.Command{
		Use:           "videogen",
		Short:         "Client for the video generator API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&server, "server", server, "API base URL (env VIDEOGEN_SERVER)")

	rootCmd.AddCommand(newSubmitCommand(newClient))
	rootCmd.AddCommand(newStatusCommand(newClient))
	rootCmd.AddCommand(newWaitCommand(newClient))
	rootCmd.AddCommand(newDownloadCommand(newClient))
	return rootCmd
}
