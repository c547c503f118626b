package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/brightpath/assistant/core/intent"
)

var (
	chatUserID    string
	chatMock      bool
	chatCentroids string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(chatMock, chatCentroids)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.store.Initialize(cmd.Context()); err != nil {
			a.logger.Warn("embedding store unavailable", "error", err)
		}

		sessionID := uuid.NewString()
		user := &intent.UserContext{
			UserID:        chatUserID,
			Authenticated: chatUserID != "",
		}

		fmt.Println("Type a question, or 'exit' to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}

			resp := a.orchestrator.ProcessMessage(cmd.Context(), chatUserID, sessionID, line, user)
			fmt.Println(resp.Content)
			for _, action := range resp.Actions {
				fmt.Printf("  [%s] %s %s\n", action.Type, action.Label, action.URL)
			}
		}
		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatUserID, "user", "", "user id for the session")
	chatCmd.Flags().BoolVar(&chatMock, "mock", false, "run without provider credentials")
	chatCmd.Flags().StringVar(&chatCentroids, "centroids", "", "path to trained centroids")
	rootCmd.AddCommand(chatCmd)
}
