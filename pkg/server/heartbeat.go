package server

import "time"

// heartbeat re-advertises the service to the registry while the server is
// active. Registration failures are logged and naturally retried at the next
// interval. The loop polls the active flag once per tick, so it stops within
// one tick of shutdown; nothing joins it.
func (s *Server) heartbeat() {
	interval := s.registrar.ReregisterInterval()
	s.log.Info("started background auto-register", "interval", interval)

	var next time.Time
	for s.active.Load() {
		now := time.Now()
		if !now.Before(next) {
			next = now.Add(interval)
			if err := s.registrar.Register(s.svc.Aliases(), s.port); err != nil {
				s.log.Error("error registering service", "error", err)
			}
		}
		time.Sleep(s.heartbeatTick)
	}
	s.log.Debug("background auto-register finished")
}
