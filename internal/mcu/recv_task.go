package mcu

import (
	"context"
	"errors"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/transport"
	"go.uber.org/zap"
)

// recvTask is the RPMSG receive task (§4.F): blocks on the channel with
// the keep-alive deadline as its timeout, declaring the host dead if
// nothing arrives in time, and dispatches every message type the App
// side can send.
func (s *Session) recvTask(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		buf, err := s.ch.Receive(s.cfg.KeepAliveMaxDelay)
		if err != nil {
			if errors.Is(err, transport.ErrTimedOut) {
				s.onKeepAliveTimeout()
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				return
			}
			s.log.Error("recv failed", zap.Error(err))
			continue
		}

		msg, err := ipp.DecodeApp(buf, len(buf))
		if err != nil {
			s.log.Error("decode failed", zap.Error(err))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) onKeepAliveTimeout() {
	s.mu.Lock()
	wasAlive := s.state.alive
	if wasAlive {
		s.state.alive = false
		s.state.dacRequested = 0
	}
	s.mu.Unlock()
	if wasAlive {
		s.log.Error("keep-alive timeout reached, connection is considered dead")
		if err := s.dev.DacDisable(); err != nil {
			s.log.Error("dac disable failed", zap.Error(err))
		}
		s.mu.Lock()
		s.state.dacRunning = false
		s.mu.Unlock()
	}
}

func (s *Session) dispatch(msg ipp.AppMsg) {
	switch m := msg.(type) {
	case ipp.Connect:
		s.handleConnect()
	case ipp.KeepAlive:
		s.checkAlive()
	case ipp.DoutUpdate:
		s.checkAlive()
		s.handleDoutUpdate(m.Value)
	case ipp.DacData:
		s.checkAlive()
		s.handleDacData(m.Points)
	case ipp.StatsReset:
		s.checkAlive()
		s.stats.Reset()
	default:
		s.log.Error("unexpected App message type")
	}
}

func (s *Session) checkAlive() {
	s.mu.Lock()
	alive := s.state.alive
	s.mu.Unlock()
	if !alive {
		s.log.Warn("RPMSG connection is not alive")
	}
}

func (s *Session) handleConnect() {
	if err := s.dev.DacEnable(); err != nil {
		s.log.Error("dac enable failed", zap.Error(err))
	}
	s.mu.Lock()
	s.state.dacRequested = 0
	s.state.dacRunning = true
	s.state.alive = true
	s.mu.Unlock()
	s.signalSend()
	s.log.Info("IOC connected")
}

func (s *Session) handleDoutUpdate(value byte) {
	const mask = 0x0f
	if value&^mask != 0 {
		s.log.Warn("dout is out of bounds", zap.Uint8("value", value))
	}
	s.mu.Lock()
	s.state.dioOut = value & mask
	s.state.doutChanged = true
	s.mu.Unlock()
}

func (s *Session) handleDacData(points []ipp.Point) {
	written := s.dacRing.Write(points)
	lost := len(points) - written
	if lost > 0 {
		s.stats.Dac.LostFull.Add(uint64(lost))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := uint64(len(points))
	if n <= s.state.dacRequested {
		s.state.dacRequested -= n
	} else {
		s.stats.Dac.ReqExceed.Add(n - s.state.dacRequested)
		s.state.dacRequested = 0
	}
}
