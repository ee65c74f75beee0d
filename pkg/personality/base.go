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
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"

	"jinr.ru/greenlab/go-ibob/pkg/device"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	SpectralPower = "SpectralPower"
	ADCSnapshot   = "ADCSnapshot"

	DefaultIntegrationTime = 40e-3
	// warmupIntegrationTime is programmed briefly during restart before the working value
	warmupIntegrationTime = 4e-3
	warmupDelay           = 100 * time.Millisecond
)

// measurementColumns are the row columns of every measurement type
var measurementColumns = []string{"ID", "AccNumber", "Timestamp", "LoadIndicator", "MasterCounter"}

// infoColumns are the info table columns shared by the spectrometers
var infoColumns = []string{"ID", "Timestamp", "PeriodRegister", "AccLenRegister", "TvgRegister", "IntegrationTime", "CommandHistory"}

// base carries what all decoders share: the host, the ADC clock and the
// control registers mirrored into the info table.
type base struct {
	mu              sync.Mutex
	name            string
	host            Host
	adcClock        float64
	integrationTime float64
	registers       map[string]uint32
}

func (b *base) init(name string, host Host, adcClock float64, registers ...string) {
	b.name = name
	b.host = host
	b.adcClock = adcClock
	b.integrationTime = DefaultIntegrationTime
	b.registers = make(map[string]uint32)
	for _, r := range registers {
		b.registers[r] = 0
	}
}

func (b *base) Name() string {
	return b.name
}

// infoKey turns a register path into an info column name
func infoKey(register string) string {
	return strings.ReplaceAll(register, "/", "_")
}

func (b *base) registerInfo() store.Row {
	row := make(store.Row, len(b.registers))
	for reg, value := range b.registers {
		row[infoKey(reg)] = value
	}
	return row
}

func (b *base) registerColumns() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var cols []string
	for reg := range b.registers {
		cols = append(cols, infoKey(reg))
	}
	sort.Strings(cols)
	return cols
}

// regwrite writes a register, mirroring tracked control registers into the info table first
func (b *base) regwrite(name string, value uint32) error {
	if b.host == nil {
		return ErrNoHost{Personality: b.name}
	}
	b.mu.Lock()
	_, tracked := b.registers[name]
	var info store.Row
	if tracked {
		b.registers[name] = value
		info = b.registerInfo()
	}
	b.mu.Unlock()
	if tracked {
		if err := b.host.WriteInfo(info); err != nil {
			log.Warning("%s unable to write register info: %s", b.name, err)
		}
	}
	return b.host.WriteRegister(name, value)
}

// StoreConfig reads every control register back from the board and writes them to the info table
func (b *base) StoreConfig() error {
	if b.host == nil {
		return ErrNoHost{Personality: b.name}
	}
	b.mu.Lock()
	names := make([]string, 0, len(b.registers))
	for reg := range b.registers {
		names = append(names, reg)
	}
	b.mu.Unlock()
	if len(names) == 0 {
		return nil
	}
	for _, reg := range names {
		value, err := b.host.ReadRegister(reg)
		if err != nil {
			log.Warning("%s unable to read register %s: %s", b.name, reg, err)
			continue
		}
		b.mu.Lock()
		b.registers[reg] = value
		b.mu.Unlock()
	}
	b.mu.Lock()
	info := b.registerInfo()
	b.mu.Unlock()
	return b.host.WriteInfo(info)
}

func (b *base) SetTvg(value uint32) error {
	return b.regwrite(device.RegTvg, value)
}

func (b *base) RequestAdcSnapshot() error {
	return b.regwrite(device.RegSnapCtrl, device.SnapshotTrigger)
}

func (b *base) IntegrationTime() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.integrationTime
}

// accumulation converts an integration time to the acc_len register and the period it implies
func (b *base) accumulation(seconds float64) (accLen, period uint32) {
	n := math.Round(b.adcClock * 1e6 * seconds / ChannelDivisor)
	if n < 1 {
		n = 1
	}
	return uint32(n), uint32(n * ChannelDivisor)
}

// setIntegrationTime programs acc_len and period; periodTrim depends on the design pipeline
func (b *base) setIntegrationTime(seconds float64, periodTrim uint32) (uint32, uint32, error) {
	accLen, period := b.accumulation(seconds)
	b.mu.Lock()
	b.integrationTime = seconds
	b.mu.Unlock()
	if err := b.regwrite(device.RegAccLen, accLen-1); err != nil {
		return 0, 0, err
	}
	if err := b.regwrite(device.RegPeriod, period-periodTrim); err != nil {
		return 0, 0, err
	}
	return accLen - 1, period - periodTrim, nil
}

func (b *base) streamer() (Streamer, error) {
	s, ok := b.host.(Streamer)
	if !ok {
		return nil, ErrNoHost{Personality: b.name}
	}
	return s, nil
}

// restart runs the bring-up sequence shared by the spectrometers
func (b *base) restart(interleave bool, set func(float64) error) error {
	s, err := b.streamer()
	if err != nil {
		return err
	}
	if err = s.EndUDP(); err != nil {
		return err
	}
	if err = s.AdcReset(interleave); err != nil {
		return err
	}
	if err = set(warmupIntegrationTime); err != nil {
		return err
	}
	time.Sleep(warmupDelay)
	if err = set(DefaultIntegrationTime); err != nil {
		return err
	}
	return s.StartUDP(device.DefaultDestination, device.DefaultUDPMode, 0)
}

func (b *base) frequencies(channels int) []float64 {
	if channels < 2 {
		return make([]float64, channels)
	}
	return floats.Span(make([]float64, channels), 0, float64(channels-1)*b.adcClock/ChannelDivisor)
}

func (b *base) unknown(m *measurement.Measurement) error {
	return ErrUnknownType{Personality: b.name, Code: m.TypeCode()}
}

// requireBuffers checks that the measurement has count buffers of at least length bytes
func (b *base) requireBuffers(m *measurement.Measurement, count, length int) error {
	if m.BufferCount < count || m.BufferLength < length {
		return ErrUnexpectedLayout{
			Personality: b.name,
			Code:        m.TypeCode(),
			Want:        fmt.Sprintf("%d x %d bytes", count, length),
			Got:         fmt.Sprintf("%d x %d bytes", m.BufferCount, m.BufferLength),
		}
	}
	return nil
}

// row builds the table row common to every measurement type
func row(m *measurement.Measurement) store.Row {
	return store.Row{
		"Timestamp":     float64(m.Timestamp.UnixNano()) / 1e9,
		"AccNumber":     int64(m.SequenceNumber),
		"LoadIndicator": int(m.LoadIndicator),
		"MasterCounter": m.MasterCounter,
	}
}

// words reads n big-endian 32 bit words
func words(b []byte, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return out
}

// samples reads n signed 8 bit samples
func samples(b []byte, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(int8(b[i]))
	}
	return out
}

// combine joins a 64 bit accumulator split across two brams
func combine(lsb, msb uint32) float64 {
	return float64(lsb) + float64(msb)*(1<<32)
}

func spectrometerType(name, code string, arrays map[string]int) store.MeasurementType {
	return store.MeasurementType{
		Name:    name,
		Code:    code,
		Columns: measurementColumns,
		Arrays:  arrays,
	}
}
