package respserver

import "github.com/puzpuzpuz/xsync/v3"

// Stats holds server counters reported by INFO.
type Stats struct {
	connectionsTotal  *xsync.Counter
	connectionsActive *xsync.Counter
	rejected          *xsync.Counter
	commandsProcessed *xsync.Counter
	commandErrors     *xsync.Counter
}

func newStats() *Stats {
	return &Stats{
		connectionsTotal:  xsync.NewCounter(),
		connectionsActive: xsync.NewCounter(),
		rejected:          xsync.NewCounter(),
		commandsProcessed: xsync.NewCounter(),
		commandErrors:     xsync.NewCounter(),
	}
}

func (s *Stats) connOpened() {
	s.connectionsTotal.Inc()
	s.connectionsActive.Inc()
}

func (s *Stats) connClosed() {
	s.connectionsActive.Dec()
}

// ConnectionsTotal returns the number of connections accepted since start.
func (s *Stats) ConnectionsTotal() int64 { return s.connectionsTotal.Value() }

// ConnectionsActive returns the number of open connections.
func (s *Stats) ConnectionsActive() int64 { return s.connectionsActive.Value() }

// ConnectionsRejected returns the number of connections refused at MaxClients.
func (s *Stats) ConnectionsRejected() int64 { return s.rejected.Value() }

// CommandsProcessed returns the number of dispatched commands.
func (s *Stats) CommandsProcessed() int64 { return s.commandsProcessed.Value() }

// CommandErrors returns the number of error replies sent.
func (s *Stats) CommandErrors() int64 { return s.commandErrors.Value() }
