package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type statusResponse struct {
	SyncState string `json:"sync_state"`
	OffsetUs  int64  `json:"offset_us"`
	MeshNowUs uint64 `json:"mesh_now_us"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the sync state, offset, and mesh time of a running node",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := cmd.Root().PersistentFlags().GetString("addr")
			if err != nil {
				return fmt.Errorf("failed to get addr flag: %w", err)
			}
			resp, err := http.Get(addr + "/status")
			if err != nil {
				return fmt.Errorf("meshctl: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("meshctl: status request failed: %s", resp.Status)
			}
			var status statusResponse
			if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
				return fmt.Errorf("meshctl: %w", err)
			}
			fmt.Printf("sync_state: %s\noffset_us:  %d\nmesh_now_us: %d\n",
				status.SyncState, status.OffsetUs, status.MeshNowUs)
			return nil
		},
	}
}
