package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups commands that run the public API.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the REST API and its background workers",
	}
	cmd.AddCommand(NewStartCommand())
	return cmd
}
