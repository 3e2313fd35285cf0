package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type notifyResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp notifyResponse
			err := ctx.callAPI(cmd.Context(), http.MethodPost, "/api/notifications/test", &resp)
			if resp.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			} else if err == nil && resp.Sent {
				fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			}
			if err != nil && resp.Error != "" {
				return fmt.Errorf("%w: %s", err, resp.Error)
			}
			return err
		},
	}
}
