// Package meshclock implements a distributed, master-less, forward-only
// mesh time synchronization protocol for a set of wireless nodes exchanging
// short broadcast datagrams on a lossy, half-duplex radio link.
//
// Every node continuously broadcasts its own view of mesh time; every node,
// on reception, conditionally pulls its view toward any advertised time
// that is ahead of its own. The result is a monotonically non-decreasing
// mesh clock that converges to the fastest-advancing node, tolerates
// packet loss and collisions, and exposes a compact ALONE / SYNCED / LOST
// sync-state signal to callers.
//
// Core exercises the three tightly coupled pieces that make this work: the
// forward-only clock adjustment rule (offset.go), the randomized-interval
// broadcast scheduler (scheduler.go), and the receive-side discriminator
// that must coexist with an arbitrary host protocol sharing the same radio
// callback (discriminator.go). The wire codec lives in the frame
// subpackage, the monotonic counter contract in monoclock, and the radio
// collaborator contract in radio.
package meshclock
