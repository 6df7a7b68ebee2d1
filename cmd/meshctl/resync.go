package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newResyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Force a node to broadcast immediately, out of its normal schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Root().PersistentFlags().GetString("addr")
			if err != nil {
				return fmt.Errorf("failed to get addr flag: %w", err)
			}
			resp, err := http.Post(addr+"/resync", "", nil)
			if err != nil {
				return fmt.Errorf("meshctl: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				return fmt.Errorf("meshctl: resync request failed: %s", resp.Status)
			}
			fmt.Println("resync requested")
			return nil
		},
	}
}
