package talespin

import (
	"context"
	"time"
)

// WithReopenInterval recycles the transport every interval, for deployments where
// proxies cut long-lived sockets. The recycled handle goes through the regular
// reconnect path, so OnDisconnect fires and the outbox is flushed as usual.
func WithReopenInterval(interval time.Duration) SessionOption {
	return func(s *Session) {
		s.reopenInterval = interval
	}
}

// reopenLoop closes the current handle at a fixed interval when it is open.
func (s *Session) reopenLoop(ctx context.Context) {
	ticker := time.NewTicker(s.reopenInterval)
	defer ticker.Stop()

	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeC:
			return
		case <-ticker.C:
			s.mu.Lock()
			conn, state := s.conn, s.state
			s.mu.Unlock()

			if state != StateOpen {
				continue
			}
			count++
			s.logger.Infof("recycling connection #%d due to reopen trigger", count)
			conn.Close()
		}
	}
}
