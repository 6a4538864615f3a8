package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"consultbot/internal/bootstrap"
)

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge index from the knowledge directory",
		Long:  "Rebuild the knowledge index synchronously. Only useful with a persistent vector store (mysql or pgvector).",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
			if err != nil {
				return err
			}
			defer app.Close()

			status, err := app.Index.Rebuild(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %d records (%s store)\n",
				status.Documents, status.Records, cfg.VectorStore.Backend)
			return nil
		},
	}
}
