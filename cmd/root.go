package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/mindcare_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/mindcare_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "mindcare",
	Short: "MindCare backend for remote therapy sessions.",
	Long: `MindCare schedules therapy sessions between patients and doctors and
connects the patient to a real-time room with an AI assistant when the
session is due. Doctors write reports afterwards.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	// Attach top-level command trees.
	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
