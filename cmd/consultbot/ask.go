package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"consultbot/internal/app"
	"consultbot/internal/bootstrap"
)

func askCmd() *cobra.Command {
	var send bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Show the context and system prompt a question would be answered with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := <-a.Index.Start(ctx, cfg.Knowledge.RebuildOnStart); err != nil {
				logger.Warn("knowledge index unavailable", "error", err)
			}

			question := args[0]
			out := cmd.OutOrStdout()
			if !send {
				retrieved, prompt := a.Chat.PreviewPrompt(ctx, question)
				fmt.Fprintf(out, "== retrieved context ==\n%s\n\n== system prompt ==\n%s\n", retrieved, prompt)
				return nil
			}

			result, err := a.Chat.Chat(ctx, app.ChatInput{Message: question})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", result.Content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&send, "send", false, "also send the question to the chat backend and print the reply")
	return cmd
}
