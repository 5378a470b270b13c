package hostdev

import (
	"errors"

	"github.com/binp-dev/tornado/internal/ipp"
	"github.com/binp-dev/tornado/internal/transport"
	"go.uber.org/zap"
)

// recvLoop sends Connect, starts the send thread, then dispatches every
// MCU->App message until Stop closes done. A transport error other than
// a clean close or a receive timeout is an invariant violation (the
// channel is assumed reliable once open) and is fatal, matching the
// original device's "I/O errors are unrecoverable" stance (§7).
func (s *Session) recvLoop() {
	buf := make([]byte, ipp.MaxMsgLen)
	n, err := ipp.EncodeApp(ipp.Connect{}, buf)
	if err != nil {
		s.log.Panic("failed to encode Connect", zap.Error(err))
	}
	if err := s.ch.Send(buf[:n], 0); err != nil {
		s.log.Panic("failed to send Connect", zap.Error(err))
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sendLoop()
	}()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		rx, err := s.ch.Receive(s.cfg.KeepAlivePeriod)
		if err != nil {
			if errors.Is(err, transport.ErrTimedOut) {
				continue
			}
			if errors.Is(err, transport.ErrClosed) {
				return
			}
			s.log.Panic("transport receive failed", zap.Error(err))
		}

		msg, err := ipp.DecodeMcu(rx, len(rx))
		if err != nil {
			s.log.Error("failed to decode MCU message", zap.Error(err))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg ipp.McuMsg) {
	switch m := msg.(type) {
	case ipp.DinUpdate:
		s.din.value.Store(uint32(m.Value))
		if cb := s.din.notify; cb != nil {
			cb()
		}
	case ipp.AdcData:
		s.handleAdcData(m.Arrays)
	case ipp.DacRequest:
		s.handleDacRequest(m.Count)
	case ipp.Debug:
		s.log.Debug(m.Text)
	case ipp.Error:
		s.log.Error("MCU reported an error", zap.Uint8("code", m.Code), zap.String("text", m.Text))
	default:
		s.log.Error("unexpected MCU message type")
	}
}

func (s *Session) handleAdcData(arrays []ipp.AdcArray) {
	if len(arrays) == 0 {
		return
	}
	for ch := 0; ch < ipp.AdcCount; ch++ {
		for _, arr := range arrays {
			s.adc[ch].push(arr[ch])
		}
	}
	s.stats.AdcSamplesReceived.Add(uint64(len(arrays)))
}

func (s *Session) handleDacRequest(count uint32) {
	s.sendMu.Lock()
	s.dac.mcuRequestedCount.Add(uint64(count))
	s.sendMu.Unlock()
	s.signalSend()
}
