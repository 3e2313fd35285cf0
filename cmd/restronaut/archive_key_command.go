package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"restronaut/internal/archive"
)

func newArchiveKeyCommand(ctx *commandContext) *cobra.Command {
	var at string
	var store string

	cmd := &cobra.Command{
		Use:   "archive-key <file>",
		Short: "Print the object key a finalized check would be archived under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			now := time.Now()
			if strings.TrimSpace(at) != "" {
				parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(at))
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				now = parsed
			}
			storeName := cfg.Archive.StoreName
			if cmd.Flags().Changed("store") {
				storeName = store
			}

			name := filepath.Base(args[0])
			fmt.Fprintln(cmd.OutOrStdout(), archive.Key(now, storeName, name))
			if !archive.Eligible(name) {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: only files whose name starts with D are archived")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Timestamp to derive the key from (RFC3339, default now)")
	cmd.Flags().StringVar(&store, "store", "", "Store name override (default archive.store_name)")
	return cmd
}
