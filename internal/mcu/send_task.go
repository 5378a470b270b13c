package mcu

import (
	"context"
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"go.uber.org/zap"
)

// sendTask is the binary-semaphore-driven RPMSG send task (§4.F). It
// wakes on sendReady (or every SendTaskTimeout as a sanity check, never
// an error by itself) and, while the session is alive, flushes a
// pending din change, batches full ADC arrays out, and replenishes DAC
// credit; while disconnected it only discards ADC batches so the ring
// doesn't grow unbounded until the host reconnects.
func (s *Session) sendTask(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.sendReady:
		case <-time.After(s.cfg.SendTaskTimeout):
			s.log.Warn("RPMSG send task timed out")
			continue
		}

		s.mu.Lock()
		alive := s.state.alive
		s.mu.Unlock()

		if alive {
			s.sendDin()
			s.sendAdcBatches()
			s.sendDacRequest()
		} else {
			s.discardAdcBatches()
		}
	}
}

func (s *Session) sendDin() {
	s.mu.Lock()
	changed := s.state.dinChanged
	din := s.state.dioIn
	if changed {
		s.state.dinChanged = false
	}
	s.mu.Unlock()
	if !changed {
		return
	}
	s.sendMcu(ipp.DinUpdate{Value: din})
}

func (s *Session) sendAdcBatches() {
	for s.adcRing.Occupied() >= ipp.AdcMsgMaxPoints {
		arrays := make([]ipp.AdcArray, ipp.AdcMsgMaxPoints)
		n := s.adcRing.Read(arrays)
		if n != ipp.AdcMsgMaxPoints {
			s.log.Error("adc ring yielded a short batch", zap.Int("got", n))
			return
		}
		s.sendMcu(ipp.AdcData{Arrays: arrays})
	}
}

func (s *Session) discardAdcBatches() {
	for s.adcRing.Occupied() >= ipp.AdcMsgMaxPoints {
		if n := s.adcRing.Skip(ipp.AdcMsgMaxPoints); n != ipp.AdcMsgMaxPoints {
			s.log.Error("adc ring skip was short", zap.Int("got", n))
			return
		}
	}
}

func (s *Session) sendDacRequest() {
	vacant := uint64(s.dacRing.Vacant())

	s.mu.Lock()
	requested := s.state.dacRequested
	s.mu.Unlock()

	var rawCount uint64
	if requested <= vacant {
		rawCount = vacant - requested
	}
	if rawCount < uint64(ipp.DacMsgMaxPoints) {
		return
	}
	count := (rawCount / uint64(ipp.DacMsgMaxPoints)) * uint64(ipp.DacMsgMaxPoints)

	s.sendMcu(ipp.DacRequest{Count: uint32(count)})

	s.mu.Lock()
	s.state.dacRequested += count
	s.mu.Unlock()
}

// sendMcu encodes and transmits one MCU->App message, logging (not
// panicking) on a transport error: a transient send failure is not
// one of the invariant violations assertx reserves panic for.
func (s *Session) sendMcu(msg ipp.McuMsg) {
	buf := make([]byte, ipp.MaxMsgLen)
	n, err := ipp.EncodeMcu(msg, buf)
	if err != nil {
		s.log.Error("encode failed", zap.Error(err))
		return
	}
	if err := s.ch.Send(buf[:n], 0); err != nil {
		s.log.Error("send failed", zap.Error(err))
	}
}
