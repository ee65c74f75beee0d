/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package personality

import (
	"encoding/binary"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

// fakeHost records everything a decoder asks of its session
type fakeHost struct {
	mu       sync.Mutex
	calls    []string
	info     []store.Row
	readback map[string]uint32
}

func (h *fakeHost) record(format string, v ...interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, fmt.Sprintf(format, v...))
}

func (h *fakeHost) WriteRegister(name string, value uint32) error {
	h.record("regwrite %s %d", name, value)
	return nil
}

func (h *fakeHost) ReadRegister(name string) (uint32, error) {
	h.record("regread %s", name)
	return h.readback[name], nil
}

func (h *fakeHost) SendCommand(command string) (string, error) {
	h.record("%s", command)
	return "\r", nil
}

func (h *fakeHost) WriteInfo(row store.Row) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.info = append(h.info, row)
	return nil
}

func (h *fakeHost) AdcReset(interleave bool) error {
	h.record("adcreset %t", interleave)
	return nil
}

func (h *fakeHost) StartUDP(ip string, mode int, portOffset int) error {
	h.record("startudp %s %d %d", ip, mode, portOffset)
	return nil
}

func (h *fakeHost) EndUDP() error {
	h.record("endudp")
	return nil
}

func newMeasurement(code byte, seq uint32, buffers ...[]byte) *measurement.Measurement {
	return &measurement.Measurement{
		Key:           measurement.Key{Type: code, SequenceNumber: seq},
		Timestamp:     time.Unix(1700000000, 500000000),
		MasterCounter: 99,
		LoadIndicator: 1,
		BufferCount:   len(buffers),
		BufferLength:  len(buffers[0]),
		Buffers:       buffers,
	}
}

func wordBuffer(values func(i int) uint32, n int) []byte {
	b := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.BigEndian.PutUint32(b[i*4:], values(i))
	}
	return b
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{DummyName, OnePolRealName, TwoPolRealName}, Names())

	d, err := New(TwoPolRealName, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, TwoPolRealName, d.Name())
	assert.Contains(t, Capabilities(d), "integration")

	_, err = New("FourPolComplex", nil, 0)
	assert.ErrorAs(t, err, &ErrUnknownPersonality{})
}

func TestDummyDecodesNothing(t *testing.T) {
	d := NewDummy(nil, DefaultAdcClock)
	assert.Empty(t, d.Schema().Types)
	_, _, _, err := d.Decode(newMeasurement('S', 1, make([]byte, 1024)))
	assert.ErrorAs(t, err, &ErrUnknownType{})
}

func TestTwoPolSpectralPower(t *testing.T) {
	n := 2 * TwoPolChannels
	lsb := wordBuffer(func(i int) uint32 { return uint32(i) }, n)
	msb := wordBuffer(func(i int) uint32 { return uint32(i % 4) }, n)
	p := NewTwoPolReal(nil, DefaultAdcClock)

	name, arrays, row, err := p.Decode(newMeasurement('S', 12, lsb, msb))
	require.NoError(t, err)
	assert.Equal(t, SpectralPower, name)
	require.Len(t, arrays["II"], TwoPolChannels)
	require.Len(t, arrays["QQ"], TwoPolChannels)

	// channel pair k=1 uses words 4..7
	assert.Equal(t, float64(4), arrays["II"][2])
	assert.Equal(t, float64(5)+(1<<32), arrays["II"][3])
	assert.Equal(t, float64(6)+2*(1<<32), arrays["QQ"][2])
	assert.Equal(t, float64(7)+3*(1<<32), arrays["QQ"][3])

	assert.Equal(t, int64(12), row["AccNumber"])
	assert.Equal(t, uint32(99), row["MasterCounter"])
	assert.InDelta(t, 1700000000.5, row["Timestamp"], 1e-6)

	mt, ok := p.Schema().Type(SpectralPower)
	require.True(t, ok)
	assert.NoError(t, checkLengths(mt, arrays))
}

// checkLengths mirrors what the stores enforce on decoder output
func checkLengths(mt store.MeasurementType, arrays store.Arrays) error {
	for name, length := range mt.Arrays {
		if len(arrays[name]) != length {
			return fmt.Errorf("%s: %d != %d", name, len(arrays[name]), length)
		}
	}
	return nil
}

func TestTwoPolSnapshot(t *testing.T) {
	b0 := make([]byte, TwoPolSnapshot)
	b1 := make([]byte, TwoPolSnapshot)
	b0[0], b0[1] = 0xFF, 0x7F
	b1[0] = 0x80
	p := NewTwoPolReal(nil, DefaultAdcClock)

	name, arrays, _, err := p.Decode(newMeasurement('A', 3, b0, b1))
	require.NoError(t, err)
	assert.Equal(t, ADCSnapshot, name)
	assert.Equal(t, []float64{-1, 127}, arrays["adcI"][:2])
	assert.Equal(t, float64(-128), arrays["adcQ"][0])
}

func TestTwoPolShortMeasurement(t *testing.T) {
	p := NewTwoPolReal(nil, DefaultAdcClock)
	_, _, _, err := p.Decode(newMeasurement('S', 1, make([]byte, 1024)))
	assert.ErrorAs(t, err, &ErrUnexpectedLayout{})
	_, _, _, err = p.Decode(newMeasurement('X', 1, make([]byte, 1024)))
	assert.ErrorAs(t, err, &ErrUnknownType{})
}

func TestOnePolSpectralPower(t *testing.T) {
	lsb := wordBuffer(func(i int) uint32 { return uint32(i) }, OnePolChannels)
	msb := wordBuffer(func(i int) uint32 { return 2 }, OnePolChannels)
	p := NewOnePolReal(nil, DefaultAdcClock)

	_, arrays, _, err := p.Decode(newMeasurement('S', 1, lsb, msb))
	require.NoError(t, err)
	require.Len(t, arrays["II"], OnePolChannels)
	assert.Equal(t, float64(1023)+2*(1<<32), arrays["II"][1023])
}

func TestOnePolSnapshotInterleave(t *testing.T) {
	n := OnePolSnapshot / 2
	b0 := make([]byte, n)
	b1 := make([]byte, n)
	for i := 0; i < 8; i++ {
		b0[i] = byte(10 + i)
		b1[i] = byte(20 + i)
	}
	p := NewOnePolReal(nil, DefaultAdcClock)

	_, arrays, _, err := p.Decode(newMeasurement('A', 1, b0, b1))
	require.NoError(t, err)
	want := []float64{23, 22, 21, 20, 13, 12, 11, 10, 27, 26, 25, 24, 17, 16, 15, 14}
	if diff := cmp.Diff(want, arrays["adcI"][:16]); diff != "" {
		t.Errorf("interleave mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, arrays["adcI"], OnePolSnapshot)
}

func TestBasebandFrequencies(t *testing.T) {
	f := NewTwoPolReal(nil, 1024).BasebandFrequencies()
	require.Len(t, f, TwoPolChannels)
	assert.Equal(t, 0.0, f[0])
	assert.InDelta(t, 511.0, f[511], 1e-9)

	f = NewOnePolReal(nil, 800).BasebandFrequencies()
	require.Len(t, f, OnePolChannels)
	assert.InDelta(t, 800.0/1024, f[1], 1e-9)
}

func TestTwoPolIntegrationTime(t *testing.T) {
	h := &fakeHost{}
	p := NewTwoPolReal(h, 1024)

	require.NoError(t, p.SetIntegrationTime(40e-3))
	assert.Equal(t, []string{
		"regwrite cfgspec/vacc/acc_len 39999",
		"regwrite period 40959997",
	}, h.calls)
	require.Len(t, h.info, 1)
	assert.Equal(t, store.Row{
		"PeriodRegister":  uint32(40959997),
		"AccLenRegister":  uint32(39999),
		"IntegrationTime": 40e-3,
	}, h.info[0])
	assert.Equal(t, 40e-3, p.IntegrationTime())
}

func TestOnePolRegisterInfo(t *testing.T) {
	h := &fakeHost{readback: map[string]uint32{"ctrl": 5}}
	p := NewOnePolReal(h, 1024)

	assert.Contains(t, p.Schema().InfoColumns, "cfgspec_vacc_acc_len")

	require.NoError(t, p.SetIntegrationTime(40e-3))
	assert.Equal(t, []string{
		"regwrite cfgspec/vacc/acc_len 39999",
		"regwrite period 40959998",
	}, h.calls)
	// each tracked register write mirrors all control registers first
	require.Len(t, h.info, 3)
	assert.Equal(t, uint32(40959998), h.info[1]["period"])
	assert.Equal(t, store.Row{"IntegrationTime": 40e-3}, h.info[2])

	require.NoError(t, p.StoreConfig())
	assert.Equal(t, uint32(5), h.info[3]["ctrl"])
}

func TestRestart(t *testing.T) {
	h := &fakeHost{}
	p := NewOnePolReal(h, 1024)
	require.NoError(t, p.Restart())
	assert.Equal(t, "endudp", h.calls[0])
	assert.Equal(t, "adcreset true", h.calls[1])
	assert.Equal(t, "startudp 192.168.0.2 24 0", h.calls[len(h.calls)-1])
	assert.Equal(t, DefaultIntegrationTime, p.IntegrationTime())
}

func TestNoHost(t *testing.T) {
	p := NewTwoPolReal(nil, DefaultAdcClock)
	assert.ErrorAs(t, p.SetIntegrationTime(1), &ErrNoHost{})
	assert.ErrorAs(t, p.Restart(), &ErrNoHost{})
}
