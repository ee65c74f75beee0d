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

const DummyName = "DummyPersonality"

// Dummy is used while bringing up new designs: it decodes nothing
type Dummy struct {
	base
}

var _ Decoder = &Dummy{}

func NewDummy(host Host, adcClock float64) *Dummy {
	d := &Dummy{}
	d.init(DummyName, host, adcClock)
	return d
}

func (d *Dummy) Schema() store.Schema {
	return store.Schema{InfoColumns: []string{"ID", "Timestamp"}}
}

func (d *Dummy) Decode(m *measurement.Measurement) (string, store.Arrays, store.Row, error) {
	return "", nil, nil, d.unknown(m)
}

func (d *Dummy) BasebandFrequencies() []float64 {
	return []float64{0}
}
