// Command hemolens runs the blood-test report analysis service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hemolens",
	Short: "Blood test report analysis service",
	Long: `hemolens accepts uploaded blood-test reports and produces structured,
evidence-grounded analysis through a staged pipeline: ingestion, evidence
extraction, verification, analysis, and advisory synthesis.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for local development; real deployments set the
		// environment directly.
		_ = godotenv.Load()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./hemolens.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
