package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"restronaut/internal/daemon"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status, preflight results, and folder counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status daemon.Status
			if err := ctx.callAPI(cmd.Context(), http.MethodGet, "/api/status", &status); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(status)
			}
			fmt.Fprint(out, renderStatus(status, shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status as JSON")
	return cmd
}
