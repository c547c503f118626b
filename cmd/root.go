package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Assistant - a conversational learning helper",
	Long:  `Assistant routes learner questions to course navigation, quiz creation, and grounded answers.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

func Execute() error {
	return rootCmd.Execute()
}
