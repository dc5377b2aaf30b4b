// Command hivectl is the operator/worker-facing CLI over a swarmhive
// project: cell CRUD, dependencies, reservations, mailbox, swarm
// coordination, semantic memory, and locks, all wired through one
// internal/session.Session per invocation (spec §6).
package main

import "os"

func main() {
	code := Execute()
	os.Exit(code)
}
