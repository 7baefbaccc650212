package main

import (
	"fmt"
	"os"

	"github.com/morphlabs/roomctx/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "roomctxd",
		Short: "Meeting room context daemon",
		Long:  "roomctxd serves document ingestion, context retrieval, and the room agent API",
	}

	rootCmd.AddCommand(cli.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
