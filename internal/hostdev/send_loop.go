package hostdev

import (
	"time"

	"github.com/binp-dev/tornado/internal/ipp"
	"go.uber.org/zap"
)

// sendLoop wakes whenever signalSend fires or the keep-alive period
// elapses, whichever comes first, and on every wake flushes a pending
// dout change, sends DAC data against outstanding credit, and honors a pending stats
// reset. A timer fire additionally sends KeepAlive, since that's the
// only thing keeping the MCU's liveness deadline from expiring when
// nothing else changed (§4.G, §6).
func (s *Session) sendLoop() {
	timer := time.NewTimer(s.cfg.KeepAlivePeriod)
	defer timer.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-s.sendReady:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
			s.sendMsg(ipp.KeepAlive{})
			s.stats.KeepAlivesSent.Add(1)
		}
		timer.Reset(s.cfg.KeepAlivePeriod)

		if s.dout.update.CompareAndSwap(true, false) {
			s.sendMsg(ipp.DoutUpdate{Value: byte(s.dout.value.Load())})
		}

		s.flushDac()

		if s.statsReset.CompareAndSwap(true, false) {
			s.stats.Reset()
			s.sendMsg(ipp.StatsReset{})
		}
	}
}

// flushDac drains the DAC double-buffer in DacMsgMaxPoints-sized chunks
// for as long as the MCU has outstanding credit, converting each
// voltage to a code on the way out, then notifies the IOC once more
// data can be queued.
func (s *Session) flushDac() {
	for {
		s.sendMu.Lock()
		requested := s.dac.mcuRequestedCount.Load()
		s.sendMu.Unlock()
		if requested == 0 {
			break
		}
		chunk := requested
		if chunk > uint64(ipp.DacMsgMaxPoints) {
			chunk = uint64(ipp.DacMsgMaxPoints)
		}

		volts := make([]float64, chunk)
		n := s.dac.data.ReadInto(volts)
		if n == 0 {
			break
		}
		volts = volts[:n]

		points := make([]ipp.Point, n)
		for i, v := range volts {
			points[i] = ipp.VoltageToCode(v)
		}
		s.sendMsg(ipp.DacData{Points: points})
		s.stats.DacPointsSent.Add(uint64(n))

		s.sendMu.Lock()
		s.dac.mcuRequestedCount.Add(^(uint64(n) - 1))
		s.sendMu.Unlock()
	}

	if s.dac.data.WriteReady() && s.dac.iocRequested.CompareAndSwap(false, true) {
		if cb := s.dac.requestNextWf; cb != nil {
			cb()
		}
	}
}

func (s *Session) sendMsg(msg ipp.AppMsg) {
	buf := make([]byte, ipp.MaxMsgLen)
	n, err := ipp.EncodeApp(msg, buf)
	if err != nil {
		s.log.Error("failed to encode message", zap.Error(err))
		return
	}
	if err := s.ch.Send(buf[:n], 0); err != nil {
		s.log.Error("failed to send message", zap.Error(err))
	}
}
