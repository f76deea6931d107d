package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a single post URL and print the result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("snatch", Version)
	},
}

func resolveRun(cmd *cobra.Command, args []string) error {
	svc, closeStore, err := buildService()
	if err != nil {
		return err
	}
	defer closeStore()

	result := svc.Resolve(cmd.Context(), args[0])

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.Success {
		os.Exit(1)
	}
	return nil
}
