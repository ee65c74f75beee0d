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
	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	TwoPolRealName = "TwoPolRealSpectrometer"
	// TwoPolChannels is the number of channels per input
	TwoPolChannels = 512
	TwoPolSnapshot = 8192
	twoPolTrim     = 3
)

// TwoPolReal is the 2 input, 512 channel total intensity spectrometer
type TwoPolReal struct {
	base
}

var (
	_ Decoder           = &TwoPolReal{}
	_ IntegrationTimer  = &TwoPolReal{}
	_ TvgSetter         = &TwoPolReal{}
	_ Restarter         = &TwoPolReal{}
	_ SnapshotRequester = &TwoPolReal{}
)

func NewTwoPolReal(host Host, adcClock float64) *TwoPolReal {
	p := &TwoPolReal{}
	p.init(TwoPolRealName, host, adcClock)
	return p
}

func (p *TwoPolReal) Schema() store.Schema {
	return store.Schema{
		Types: []store.MeasurementType{
			spectrometerType(SpectralPower, "S", map[string]int{"II": TwoPolChannels, "QQ": TwoPolChannels}),
			spectrometerType(ADCSnapshot, "A", map[string]int{"adcI": TwoPolSnapshot, "adcQ": TwoPolSnapshot}),
		},
		InfoColumns: infoColumns,
	}
}

// Decode unpacks both inputs. Bram 0 holds the low and bram 1 the high
// halves of the accumulators, interleaved as I even, I odd, Q even, Q odd.
func (p *TwoPolReal) Decode(m *measurement.Measurement) (string, store.Arrays, store.Row, error) {
	switch m.TypeCode() {
	case "S":
		n := 2 * TwoPolChannels
		if err := p.requireBuffers(m, 2, n*4); err != nil {
			return "", nil, nil, err
		}
		lsb := words(m.Buffers[0], n)
		msb := words(m.Buffers[1], n)
		ii := make([]float64, TwoPolChannels)
		qq := make([]float64, TwoPolChannels)
		for k := 0; k < TwoPolChannels/2; k++ {
			ii[2*k] = combine(lsb[4*k], msb[4*k])
			ii[2*k+1] = combine(lsb[4*k+1], msb[4*k+1])
			qq[2*k] = combine(lsb[4*k+2], msb[4*k+2])
			qq[2*k+1] = combine(lsb[4*k+3], msb[4*k+3])
		}
		return SpectralPower, store.Arrays{"II": ii, "QQ": qq}, row(m), nil
	case "A":
		if err := p.requireBuffers(m, 2, TwoPolSnapshot); err != nil {
			return "", nil, nil, err
		}
		return ADCSnapshot, store.Arrays{
			"adcI": samples(m.Buffers[0], TwoPolSnapshot),
			"adcQ": samples(m.Buffers[1], TwoPolSnapshot),
		}, row(m), nil
	}
	return "", nil, nil, p.unknown(m)
}

func (p *TwoPolReal) BasebandFrequencies() []float64 {
	return p.frequencies(TwoPolChannels)
}

// SetIntegrationTime programs the accumulation length and records it in the info table
func (p *TwoPolReal) SetIntegrationTime(seconds float64) error {
	accLen, period, err := p.setIntegrationTime(seconds, twoPolTrim)
	if err != nil {
		return err
	}
	return p.host.WriteInfo(store.Row{
		"PeriodRegister":  period,
		"AccLenRegister":  accLen,
		"IntegrationTime": seconds,
	})
}

func (p *TwoPolReal) Restart() error {
	return p.restart(false, p.SetIntegrationTime)
}
