package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newSendTestFrameCmd() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "send-test-frame",
		Short: "Push an arbitrary payload onto a node's radio, for coexistence testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Root().PersistentFlags().GetString("addr")
			if err != nil {
				return fmt.Errorf("failed to get addr flag: %w", err)
			}
			resp, err := http.Post(addr+"/test-frame", "application/octet-stream", strings.NewReader(payload))
			if err != nil {
				return fmt.Errorf("meshctl: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("meshctl: send-test-frame failed: %s", resp.Status)
			}
			fmt.Println("test frame sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "ping", "payload bytes to send, as a raw string")
	return cmd
}
