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

package measurement

import (
	"fmt"
	"time"

	"jinr.ru/greenlab/go-ibob/pkg/layers"
)

const (
	// NominalFragmentSize is the number of buffer bytes one fragment covers
	NominalFragmentSize = 1024
	// WordSize is the unit of ByteOffset and BufferDepth
	WordSize = 4
)

// Key identifies a measurement among those in flight
type Key struct {
	Type           uint8
	SequenceNumber uint32
}

func (k Key) String() string {
	return fmt.Sprintf("(%c,%d)", k.Type, k.SequenceNumber)
}

// Measurement collects the fragments of one measurement. Layout comes from
// the first fragment: BufferCount buffers of BufferLength bytes each,
// covered by FragmentsPerBuffer fragments.
type Measurement struct {
	Key
	Timestamp     time.Time
	MasterCounter uint32
	LoadIndicator uint16
	Extra18       uint16
	Extra20       uint32

	BufferCount        int
	BufferDepth        int
	BufferLength       int
	FragmentsPerBuffer int

	Buffers [][]byte
	arrived [][]bool
	missing int
}

func bufferLength(depth uint16) int {
	length := int(depth) * WordSize
	if length < NominalFragmentSize {
		length = NominalFragmentSize
	}
	return length
}

func fragmentsPerBuffer(length int) int {
	n := length / NominalFragmentSize
	if n < 1 {
		n = 1
	}
	return n
}

// New creates a measurement seeded with its first fragment
func New(first *layers.DataPacket) (*Measurement, error) {
	length := bufferLength(first.BufferDepth)
	perBuffer := fragmentsPerBuffer(length)
	count := int(first.BufferCount)

	m := &Measurement{
		Key:                Key{Type: first.Type, SequenceNumber: first.SequenceNumber},
		Timestamp:          time.Now(),
		MasterCounter:      first.MasterCounter,
		LoadIndicator:      first.LoadIndicator,
		Extra18:            first.Extra18,
		Extra20:            first.Extra20,
		BufferCount:        count,
		BufferDepth:        int(first.BufferDepth),
		BufferLength:       length,
		FragmentsPerBuffer: perBuffer,
		Buffers:            make([][]byte, count),
		arrived:            make([][]bool, count),
		missing:            count * perBuffer,
	}
	for i := 0; i < count; i++ {
		m.Buffers[i] = make([]byte, length)
		m.arrived[i] = make([]bool, perBuffer)
	}
	return m, m.Place(first)
}

// TypeCode is the single character measurement type
func (m *Measurement) TypeCode() string {
	return string(rune(m.Type))
}

// Place copies a fragment into its buffer. Fragments outside the layout are
// rejected without writing anything. A repeated fragment overwrites the previous copy.
func (m *Measurement) Place(p *layers.DataPacket) error {
	if int(p.BufferCount) != m.BufferCount {
		return ErrLayoutMismatch{Key: m.Key, What: "buffer count", Want: m.BufferCount, Got: int(p.BufferCount)}
	}
	if int(p.BufferDepth) != m.BufferDepth {
		return ErrLayoutMismatch{Key: m.Key, What: "buffer depth", Want: m.BufferDepth, Got: int(p.BufferDepth)}
	}

	index := int(p.BufferIndex)
	start := int(p.ByteOffset) * WordSize
	end := start + len(p.Payload)
	slot := start / NominalFragmentSize
	if index >= m.BufferCount || slot >= m.FragmentsPerBuffer || end > m.BufferLength {
		return ErrAssemblyOverflow{Key: m.Key, BufferIndex: index, Offset: start, Length: len(p.Payload)}
	}

	copy(m.Buffers[index][start:end], p.Payload)
	if !m.arrived[index][slot] {
		m.arrived[index][slot] = true
		m.missing--
	}
	return nil
}

// IsComplete reports whether every expected fragment arrived at least once
func (m *Measurement) IsComplete() bool {
	return m.missing == 0
}

// Missing is the number of fragment slots not yet written
func (m *Measurement) Missing() int {
	return m.missing
}
