package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "drama",
		Short: "Distributed workflow orchestrator",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional; env vars set by the environment win.
			_ = godotenv.Load()
		},
	}

	root.AddCommand(newServerCmd())
	root.AddCommand(newWorkerCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
