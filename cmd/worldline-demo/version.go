package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of worldline-demo",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("worldline-demo version 0.1.0")
	},
}
