package mcu

import (
	"context"

	"github.com/binp-dev/tornado/internal/ipp"
	"go.uber.org/zap"
)

// sampleLoop is the highest-priority MCU task (§4.E, §5): one SPI
// transfer per 10 kHz tick, coupling SkifIO to the DAC/ADC rings. It
// never blocks except in WaitReady, and never returns except when ctx
// is cancelled.
func (s *Session) sampleLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.dev.WaitReady(s.cfg.SampleReadyTimeout); err != nil {
			s.log.Warn("sample-ready wait timed out")
			continue
		}

		ready := s.sampleTick()
		if ready {
			s.signalSend()
		}
		s.stats.SampleCount.Add(1)
	}
}

// sampleTick performs steps 2-8 of one iteration and returns whether
// the send task should be woken.
func (s *Session) sampleTick() bool {
	ready := false

	s.mu.Lock()
	if s.state.doutChanged {
		if err := s.dev.DoutWrite(s.state.dioOut); err != nil {
			s.log.Error("dout write failed", zap.Error(err))
		}
		s.state.doutChanged = false
	}
	s.mu.Unlock()

	if din, err := s.dev.DinRead(); err != nil {
		s.log.Error("din read failed", zap.Error(err))
	} else {
		s.mu.Lock()
		if din != s.state.dioIn {
			s.state.dioIn = din
			s.state.dinChanged = true
			ready = true
		}
		s.mu.Unlock()
	}

	if s.intrCounter != nil {
		cur := s.intrCounter()
		delta := cur - s.prevIntr
		s.prevIntr = cur
		for {
			prevMax := s.stats.MaxIntrsPerSample.Load()
			if uint32(delta) <= prevMax || s.stats.MaxIntrsPerSample.CompareAndSwap(prevMax, uint32(delta)) {
				break
			}
		}
	}

	s.mu.Lock()
	dacCode := s.state.dacLastPoint
	if s.state.dacRunning {
		var pts [1]ipp.Point
		if s.dacRing.Read(pts[:]) == 1 {
			s.state.dacLastPoint = pts[0]
			dacCode = pts[0]
			if s.state.dacCounter > 0 {
				s.state.dacCounter--
			} else {
				s.state.dacCounter = ipp.DacMsgMaxPoints - 1
				ready = true
			}
		} else {
			s.stats.Dac.LostEmpty.Add(1)
		}
	}
	s.mu.Unlock()

	adc, err := s.dev.Transfer(dacCode)
	if err != nil {
		s.stats.CrcErrorCount.Add(1)
	}

	for i, p := range adc {
		s.stats.Adc[i].Values.Update(p)
	}
	var arr [1]ipp.AdcArray
	arr[0] = adc
	if s.adcRing.Write(arr[:]) != 1 {
		for i := range adc {
			s.stats.Adc[i].LostFull.Add(1)
		}
	}

	ready = s.tickAdcCounter() || ready

	return ready
}

func (s *Session) tickAdcCounter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.adcCounter > 0 {
		s.state.adcCounter--
		return false
	}
	s.state.adcCounter = ipp.AdcMsgMaxPoints - 1
	return true
}
