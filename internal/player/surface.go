package player

import "log/slog"

// Surface is the media element the synchronizer drives: load a source,
// seek in its local timebase, start and stop. Calls are fire-and-forget
// commands; the surface reports failures back through HandleMediaError.
// Only the synchronizer talks to the surface.
type Surface interface {
	Load(mediaRef string)
	Play()
	Pause()
	Seek(localTime float64)
	SetMuted(muted bool)
}

// StubSurface logs surface commands. Used when no preview client is
// connected.
type StubSurface struct {
	logger *slog.Logger
}

func NewStubSurface(logger *slog.Logger) *StubSurface {
	return &StubSurface{logger: logger}
}

func (s *StubSurface) Load(mediaRef string) {
	s.logger.Debug("surface stub: load", "media_ref", mediaRef)
}

func (s *StubSurface) Play() {
	s.logger.Debug("surface stub: play")
}

func (s *StubSurface) Pause() {
	s.logger.Debug("surface stub: pause")
}

func (s *StubSurface) Seek(localTime float64) {
	s.logger.Debug("surface stub: seek", "local_time", localTime)
}

func (s *StubSurface) SetMuted(muted bool) {
	s.logger.Debug("surface stub: set muted", "muted", muted)
}
