// Command meshsim runs several mesh clock nodes in one process over a
// shared radio/simradio medium with configurable loss and jitter, without
// any real hardware. All nodes are started together, ticked for -run-for,
// and each node's final sync state, offset and mesh time are logged. It
// does not stage isolated, late-joining or departing nodes; with -nodes=1
// the single node stays ALONE.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/tve/meshclock"
	"github.com/tve/meshclock/monoclock"
	"github.com/tve/meshclock/radio/simradio"
)

func main() {
	nodes := flag.Int("nodes", 4, "number of simulated nodes")
	lossRate := flag.Float64("loss-rate", 0.1, "probability a broadcast is dropped in transit")
	jitterMs := flag.Int("jitter-ms", 5, "maximum extra delivery delay per recipient, in ms")
	runFor := flag.Duration("run-for", 30*time.Second, "how long to run the simulation")
	flag.Parse()

	medium := simradio.NewMedium(*lossRate, time.Duration(*jitterMs)*time.Millisecond)

	type node struct {
		id   byte
		core *meshclock.Core
	}

	sims := make([]*node, *nodes)
	for i := range sims {
		addr := [6]byte{0, 0, 0, 0, 0, byte(i + 1)}
		r := simradio.New(medium, addr)

		cfg := meshclock.DefaultConfig()
		cfg.ClockSource = monoclock.NewSafe()
		logger := meshclock.LogPrintf(func(format string, v ...interface{}) {
			log.Printf(fmt.Sprintf("node%d: %s", addr[5], format), v...)
		})
		core, err := meshclock.New(cfg, r, meshclock.Opts{Logger: logger, Rand: rand.New(rand.NewSource(int64(i) + 1))})
		if err != nil {
			log.Fatalf("node%d: New: %s", addr[5], err)
		}
		if err := core.Begin(true); err != nil {
			log.Fatalf("node%d: Begin: %s", addr[5], err)
		}
		sims[i] = &node{id: addr[5], core: core}
	}

	log.Printf("simulating %d nodes, loss_rate=%.2f jitter=%dms for %s",
		*nodes, *lossRate, *jitterMs, *runFor)

	deadline := time.Now().Add(*runFor)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		for _, n := range sims {
			n.core.Tick()
		}
		if time.Now().After(deadline) {
			break
		}
	}

	for _, n := range sims {
		log.Printf("node%d final: sync_state=%s offset_us=%d mesh_now_us=%d",
			n.id, n.core.SyncState(), n.core.Offset(), n.core.MeshNowUs())
	}
}
