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
	"sort"

	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	DefaultAdcClock = 1024.0
	// ChannelDivisor converts the ADC clock to the channel spacing of the FFT
	ChannelDivisor = 1024.0
)

// Host is what a decoder may ask of the session it is attached to
type Host interface {
	WriteRegister(name string, value uint32) error
	ReadRegister(name string) (uint32, error)
	SendCommand(command string) (string, error)
	WriteInfo(row store.Row) error
}

// Streamer is implemented by hosts able to restart the data stream
type Streamer interface {
	AdcReset(interleave bool) error
	StartUDP(ip string, mode int, portOffset int) error
	EndUDP() error
}

// Decoder turns completed measurements into named arrays and a row
type Decoder interface {
	Name() string
	Schema() store.Schema
	Decode(m *measurement.Measurement) (string, store.Arrays, store.Row, error)
	BasebandFrequencies() []float64
}

// IntegrationTimer is implemented by decoders with a programmable accumulation length
type IntegrationTimer interface {
	SetIntegrationTime(seconds float64) error
	IntegrationTime() float64
}

// TvgSetter is implemented by designs with a test vector generator
type TvgSetter interface {
	SetTvg(value uint32) error
}

// Restarter is implemented by decoders that know how to bring their design up
type Restarter interface {
	Restart() error
}

// SnapshotRequester is implemented by designs that produce ADC snapshots
type SnapshotRequester interface {
	RequestAdcSnapshot() error
}

// ConfigStorer is implemented by decoders that track control registers
type ConfigStorer interface {
	StoreConfig() error
}

type Factory func(host Host, adcClock float64) Decoder

var factories = map[string]Factory{
	DummyName: func(host Host, adcClock float64) Decoder {
		return NewDummy(host, adcClock)
	},
	TwoPolRealName: func(host Host, adcClock float64) Decoder {
		return NewTwoPolReal(host, adcClock)
	},
	OnePolRealName: func(host Host, adcClock float64) Decoder {
		return NewOnePolReal(host, adcClock)
	},
}

// New creates the decoder registered under name. A zero adcClock selects the default.
func New(name string, host Host, adcClock float64) (Decoder, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, ErrUnknownPersonality{Name: name}
	}
	if adcClock <= 0 {
		adcClock = DefaultAdcClock
	}
	return factory(host, adcClock), nil
}

// Names lists the registered decoders
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities lists the optional operations a decoder supports
func Capabilities(d Decoder) []string {
	var caps []string
	if _, ok := d.(IntegrationTimer); ok {
		caps = append(caps, "integration")
	}
	if _, ok := d.(TvgSetter); ok {
		caps = append(caps, "tvg")
	}
	if _, ok := d.(Restarter); ok {
		caps = append(caps, "restart")
	}
	if _, ok := d.(SnapshotRequester); ok {
		caps = append(caps, "snapshot")
	}
	if _, ok := d.(ConfigStorer); ok {
		caps = append(caps, "config")
	}
	return caps
}
