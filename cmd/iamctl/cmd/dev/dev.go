package dev

import (
	"github.com/spf13/cobra"
)

// DevCmd groups development helpers
var DevCmd = &cobra.Command{
	Use:   "dev",
	Short: "Development helpers",
}

func init() {
	DevCmd.AddCommand(mockGatewayCmd)
}
