package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/vaidya/internal/cli"
	"github.com/cloo-solutions/vaidya/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vaidyad",
		Short: "Vaidya medical retrieval daemon and CLI",
		Long:  "Vaidya daemon for serving the medical question-answering API and maintaining its document corpus",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.DocumentsCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.SymptomsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
