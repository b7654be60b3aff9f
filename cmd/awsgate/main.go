// Package main implements the awsgate command. serve runs the HTTP gateway,
// hash-password prints a bcrypt hash for use in configuration and version
// prints the build version.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// envPrefix is prepended to upper-cased flag names to form the environment
// variables consulted for flags not set on the command line.
const envPrefix = "AWSGATE"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return newRootCommand().Execute()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "awsgate",
		Short:         "REST gateway for SQS, SNS, S3 and Secrets Manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newHashPasswordCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the awsgate version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return root
}
