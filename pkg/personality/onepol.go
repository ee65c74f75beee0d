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
	"jinr.ru/greenlab/go-ibob/pkg/device"
	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	OnePolRealName = "OnePolRealSpectrometer"
	OnePolChannels = 1024
	// OnePolSnapshot is the length of the interleaved snapshot built from both brams
	OnePolSnapshot = 16384
	onePolTrim     = 2
)

// OnePolReal is the single input, 1024 channel spectrometer with an interleaved ADC
type OnePolReal struct {
	base
}

var (
	_ Decoder           = &OnePolReal{}
	_ IntegrationTimer  = &OnePolReal{}
	_ TvgSetter         = &OnePolReal{}
	_ Restarter         = &OnePolReal{}
	_ SnapshotRequester = &OnePolReal{}
	_ ConfigStorer      = &OnePolReal{}
)

func NewOnePolReal(host Host, adcClock float64) *OnePolReal {
	p := &OnePolReal{}
	p.init(OnePolRealName, host, adcClock, device.RegCtrl, device.RegAccLen, device.RegPeriod)
	return p
}

func (p *OnePolReal) Schema() store.Schema {
	return store.Schema{
		Types: []store.MeasurementType{
			spectrometerType(SpectralPower, "S", map[string]int{"II": OnePolChannels}),
			spectrometerType(ADCSnapshot, "A", map[string]int{"adcI": OnePolSnapshot}),
		},
		InfoColumns: append(append([]string{}, infoColumns...), p.registerColumns()...),
	}
}

// Decode joins the two accumulator halves. Snapshots come as groups of four
// samples per bram in reversed order, bram 1 first.
func (p *OnePolReal) Decode(m *measurement.Measurement) (string, store.Arrays, store.Row, error) {
	switch m.TypeCode() {
	case "S":
		if err := p.requireBuffers(m, 2, OnePolChannels*4); err != nil {
			return "", nil, nil, err
		}
		lsb := words(m.Buffers[0], OnePolChannels)
		msb := words(m.Buffers[1], OnePolChannels)
		ii := make([]float64, OnePolChannels)
		for k := range ii {
			ii[k] = combine(lsb[k], msb[k])
		}
		return SpectralPower, store.Arrays{"II": ii}, row(m), nil
	case "A":
		n := OnePolSnapshot / 2
		if err := p.requireBuffers(m, 2, n); err != nil {
			return "", nil, nil, err
		}
		b0 := samples(m.Buffers[0], n)
		b1 := samples(m.Buffers[1], n)
		adc := make([]float64, OnePolSnapshot)
		for g := 0; g < n/4; g++ {
			for j := 0; j < 4; j++ {
				adc[8*g+j] = b1[4*g+3-j]
				adc[8*g+4+j] = b0[4*g+3-j]
			}
		}
		return ADCSnapshot, store.Arrays{"adcI": adc}, row(m), nil
	}
	return "", nil, nil, p.unknown(m)
}

func (p *OnePolReal) BasebandFrequencies() []float64 {
	return p.frequencies(OnePolChannels)
}

func (p *OnePolReal) SetIntegrationTime(seconds float64) error {
	if _, _, err := p.setIntegrationTime(seconds, onePolTrim); err != nil {
		return err
	}
	return p.host.WriteInfo(store.Row{"IntegrationTime": seconds})
}

func (p *OnePolReal) Restart() error {
	return p.restart(true, p.SetIntegrationTime)
}
