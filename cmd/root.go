package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openlegis/billchat/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "billchat",
	Short: "Congressional bill monitoring with retrieval-augmented chat",
	Long: `billchat monitors Congress.gov for new bills, indexes their text into
a semantic vector database, and answers questions about them through
an LLM-backed chat API.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// API keys live in .env during development; missing file is fine.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
}
