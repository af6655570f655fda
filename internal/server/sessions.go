package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ironsheep/marker-pose/internal/config"
	"github.com/ironsheep/marker-pose/internal/pipeline"
	"github.com/ironsheep/marker-pose/internal/pose"
)

// ErrSessionNotFound is returned for unknown or closed session ids.
var ErrSessionNotFound = errors.New("session not found")

// session is one tracking sequence. Its mutex serialises frames, because a
// Tracker is not safe for concurrent use.
type session struct {
	id      string
	created time.Time

	mu         sync.Mutex
	tracker    *pipeline.Tracker
	camera     pose.CameraModel
	axisLength float64
}

func (s *Server) openSession(cfg config.Config) (*session, error) {
	id := uuid.NewString()
	tr, err := pipeline.New(cfg, s.log.With(zap.String("session", id)), s.metrics)
	if err != nil {
		return nil, err
	}

	sess := &session{
		id:         id,
		created:    time.Now(),
		tracker:    tr,
		camera:     cfg.CameraModel(),
		axisLength: cfg.Render.AxisLength,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("session opened", zap.String("session", id))
	return sess, nil
}

func (s *Server) lookupSession(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Server) closeSession(id string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.log.Info("session closed", zap.String("session", id), zap.Int("frames", sess.tracker.Frames()))
	return sess, nil
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
