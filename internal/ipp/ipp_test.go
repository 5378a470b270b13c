package ipp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMsgRoundTrip(t *testing.T) {
	cases := []AppMsg{
		Connect{},
		KeepAlive{},
		StatsReset{},
		DoutUpdate{Value: 0x05},
		DacData{Points: nil},
		DacData{Points: []Point{1, -2, 32767, -32768}},
	}
	for _, m := range cases {
		buf := make([]byte, MaxMsgLen)
		n, err := EncodeApp(m, buf)
		require.NoError(t, err)
		got, err := DecodeApp(buf, n)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestMcuMsgRoundTrip(t *testing.T) {
	cases := []McuMsg{
		DinUpdate{Value: 0xAB},
		AdcData{Arrays: nil},
		AdcData{Arrays: []AdcArray{{1, 2, 3, 4, 5, 6}, {-1, -2, -3, -4, -5, -6}}},
		DacRequest{Count: 123456},
		Debug{Text: "booted"},
		Error{Code: 7, Text: "crc mismatch"},
	}
	for _, m := range cases {
		buf := make([]byte, MaxMsgLen)
		n, err := EncodeMcu(m, buf)
		require.NoError(t, err)
		got, err := DecodeMcu(buf, n)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestDecodeAppUnknownTag(t *testing.T) {
	_, err := DecodeApp([]byte{0xFF}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDecodeAppTruncated(t *testing.T) {
	_, err := DecodeApp([]byte{tagDoutUpdate}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestDacDataZeroPointsIsNoop(t *testing.T) {
	buf := make([]byte, MaxMsgLen)
	n, err := EncodeApp(DacData{}, buf)
	require.NoError(t, err)
	got, err := DecodeApp(buf, n)
	require.NoError(t, err)
	dd, ok := got.(DacData)
	require.True(t, ok)
	assert.Empty(t, dd.Points)
}

func TestAdcDataFitsOneMessage(t *testing.T) {
	arrays := make([]AdcArray, AdcMsgMaxPoints)
	buf := make([]byte, MaxMsgLen)
	n, err := EncodeMcu(AdcData{Arrays: arrays}, buf)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, MaxMsgLen)
}

func TestVoltageCodeConversion(t *testing.T) {
	code := VoltageToCode(0)
	assert.Equal(t, Point(DacCodeShift), code)
}
