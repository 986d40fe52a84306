package talespin

import (
	"context"
	"time"
)

// keepAliveLoop sends a Ping intent every s.keepAlive while a handle is open. Ticks that
// find no open handle are skipped; pings are never queued.
func (s *Session) keepAliveLoop(ctx context.Context) {
	ping, err := EncodeIntent(Ping{})
	if err != nil {
		s.logger.Errorf("keep-alive disabled: %s", err)
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeC:
			return
		case <-ticker.C:
			if !s.writeIfOpen(NewTextFrame(ping)) {
				s.logger.Debugln("keep-alive skipped, transport not open")
			}
		}
	}
}
