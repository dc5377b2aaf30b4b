// Package session composes every swarmhive component into one object per
// project: the store, event log, projector, and the six library-surface
// components built on top of them (spec §9 "Global singletons become values
// owned by SwarmSession"). Grounded on the teacher's cmd/bd bootstrap
// wiring, generalized from a single Dolt-backed store to swarmhive's full
// component graph.
package session

import (
	"context"

	"github.com/swarmhive/swarmhive/internal/eventlog"
	"github.com/swarmhive/swarmhive/internal/hive"
	"github.com/swarmhive/swarmhive/internal/lock"
	"github.com/swarmhive/swarmhive/internal/mailbox"
	"github.com/swarmhive/swarmhive/internal/memory"
	"github.com/swarmhive/swarmhive/internal/projector"
	"github.com/swarmhive/swarmhive/internal/reservation"
	"github.com/swarmhive/swarmhive/internal/store"
	"github.com/swarmhive/swarmhive/internal/store/sqlite"
	"github.com/swarmhive/swarmhive/internal/swarm"
)

// Session owns one project's full component graph, wired over a single
// store file. The CLI builds its components through a Session; package
// tests construct single components directly.
type Session struct {
	ProjectKey string

	Store        store.Store
	Log          *eventlog.EventLog
	Mailbox      *mailbox.Mailbox
	Reservations *reservation.Manager
	Hive         *hive.Hive
	Swarm        *swarm.Coordinator
	Memory       *memory.Memory
	Lock         *lock.Lock
}

// Options configures the pluggable hooks a Session wires into Memory.
// Both may be nil; SemanticMemory degrades to FTS-only search and
// skips entity extraction accordingly.
type Options struct {
	Embed     memory.EmbedFunc
	Extractor memory.Extractor
}

// Open creates (or attaches to) the store file at dbPath and wires every
// component for projectKey. Callers own the returned Session's lifetime and
// must call Close when done.
func Open(ctx context.Context, dbPath, projectKey string, opts Options) (*Session, error) {
	s, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	log := eventlog.New(s, projector.New())
	mb := mailbox.New(s, log)
	reservations := reservation.New(s, log)
	hv := hive.New(s, log, projectKey)
	sc := swarm.New(s, log, hv, reservations, mb, projectKey)
	mem := memory.New(s, log, projectKey, opts.Embed, opts.Extractor)
	lk := lock.New(s)

	return &Session{
		ProjectKey:   projectKey,
		Store:        s,
		Log:          log,
		Mailbox:      mb,
		Reservations: reservations,
		Hive:         hv,
		Swarm:        sc,
		Memory:       mem,
		Lock:         lk,
	}, nil
}

// Close releases the underlying store connection.
func (s *Session) Close() error {
	return s.Store.Close()
}
