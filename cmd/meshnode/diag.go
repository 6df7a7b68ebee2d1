package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/tve/meshclock"
	"github.com/tve/meshclock/radio"
)

// diagStatus is the JSON shape cmd/meshctl's status subcommand parses.
type diagStatus struct {
	SyncState string `json:"sync_state"`
	OffsetUs  int64  `json:"offset_us"`
	MeshNowUs uint64 `json:"mesh_now_us"`
}

// registerDiagHandlers wires the operator HTTP endpoints cmd/meshctl talks
// to onto mux: GET /status for a snapshot, POST /resync to force an
// out-of-schedule broadcast, POST /test-frame to push an arbitrary payload
// onto the radio for coexistence testing (§4.5 delegated mode).
func registerDiagHandlers(mux *http.ServeMux, core *meshclock.Core, r radio.Radio) {
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := diagStatus{
			SyncState: core.SyncState().String(),
			OffsetUs:  core.Offset(),
			MeshNowUs: core.MeshNowUs(),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/resync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		core.Nudge()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/test-frame", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		payload, err := io.ReadAll(io.LimitReader(req.Body, 256))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := r.Send(radio.BroadcastAddr, payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
