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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ibob/pkg/layers"
)

// fragments cuts synthetic buffers into the datagrams a board would send
func fragments(typ uint8, seq uint32, bufferCount int, depth uint16) []*layers.DataPacket {
	length := bufferLength(depth)
	var out []*layers.DataPacket
	for b := 0; b < bufferCount; b++ {
		for offset := 0; offset < length; offset += NominalFragmentSize {
			payload := make([]byte, NominalFragmentSize)
			for i := range payload {
				payload[i] = byte(b*31 + offset/NominalFragmentSize*7 + i)
			}
			out = append(out, &layers.DataPacket{
				DataHeader: layers.DataHeader{
					Type:           typ,
					BufferIndex:    uint8(b),
					BufferCount:    uint8(bufferCount),
					ByteOffset:     uint16(offset / WordSize),
					BufferDepth:    depth,
					SequenceNumber: seq,
					MasterCounter:  1000 + seq,
				},
				Payload: payload,
			})
		}
	}
	return out
}

func assemble(t *testing.T, packets []*layers.DataPacket) *Measurement {
	m, err := New(packets[0])
	require.NoError(t, err)
	for _, p := range packets[1:] {
		require.NoError(t, m.Place(p))
	}
	return m
}

var ignoreTimestamp = cmpopts.IgnoreFields(Measurement{}, "Timestamp")

func TestLayoutFromFirstFragment(t *testing.T) {
	tests := []struct {
		depth     uint16
		length    int
		perBuffer int
	}{
		{depth: 0, length: 1024, perBuffer: 1},
		{depth: 100, length: 1024, perBuffer: 1},
		{depth: 256, length: 1024, perBuffer: 1},
		{depth: 1024, length: 4096, perBuffer: 4},
		{depth: 2048, length: 8192, perBuffer: 8},
	}
	for _, tt := range tests {
		m, err := New(fragments('S', 1, 2, tt.depth)[0])
		require.NoError(t, err)
		assert.Equal(t, tt.length, m.BufferLength, "depth %d", tt.depth)
		assert.Equal(t, tt.perBuffer, m.FragmentsPerBuffer, "depth %d", tt.depth)
		assert.Len(t, m.Buffers, 2)
		assert.Equal(t, 2*tt.perBuffer-1, m.Missing())
	}
}

func TestCompleteIffAllSlotsWritten(t *testing.T) {
	packets := fragments('S', 7, 2, 1024)
	m, err := New(packets[0])
	require.NoError(t, err)

	for _, p := range packets[1 : len(packets)-1] {
		require.NoError(t, m.Place(p))
		assert.False(t, m.IsComplete())
	}
	// repeating a fragment does not count twice
	require.NoError(t, m.Place(packets[1]))
	assert.False(t, m.IsComplete())

	require.NoError(t, m.Place(packets[len(packets)-1]))
	assert.True(t, m.IsComplete())
}

func TestOrderAndDuplicatesDoNotMatter(t *testing.T) {
	packets := fragments('S', 42, 2, 1024)
	want := assemble(t, packets)

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 20; round++ {
		shuffled := append([]*layers.DataPacket{}, packets...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		// sprinkle duplicates
		for i := 0; i < 3; i++ {
			shuffled = append(shuffled, packets[rng.Intn(len(packets))])
		}
		got := assemble(t, shuffled)
		assert.True(t, got.IsComplete())
		// first-fragment metadata is identical for all fragments here
		if diff := cmp.Diff(want, got, ignoreTimestamp, cmp.AllowUnexported(Measurement{})); diff != "" {
			t.Fatalf("round %d: measurement mismatch (-want +got):\n%s", round, diff)
		}
	}
}

func TestOutOfBoundsFragmentDropped(t *testing.T) {
	packets := fragments('A', 3, 2, 256)
	m, err := New(packets[0])
	require.NoError(t, err)
	before := append([]byte{}, m.Buffers[0]...)

	badIndex := *packets[1]
	badIndex.BufferIndex = 2
	err = m.Place(&badIndex)
	assert.IsType(t, ErrAssemblyOverflow{}, err)

	badOffset := *packets[0]
	badOffset.ByteOffset = 256
	err = m.Place(&badOffset)
	assert.IsType(t, ErrAssemblyOverflow{}, err)

	longPayload := *packets[0]
	longPayload.ByteOffset = 1
	err = m.Place(&longPayload)
	assert.IsType(t, ErrAssemblyOverflow{}, err)

	assert.Equal(t, before, m.Buffers[0])
	assert.Equal(t, 1, m.Missing())
}

func TestLayoutMismatchSurfaced(t *testing.T) {
	packets := fragments('S', 9, 2, 1024)
	m, err := New(packets[0])
	require.NoError(t, err)

	other := *packets[1]
	other.BufferDepth = 512
	assert.Equal(t, ErrLayoutMismatch{Key: m.Key, What: "buffer depth", Want: 1024, Got: 512}, m.Place(&other))

	other = *packets[1]
	other.BufferCount = 3
	assert.Equal(t, ErrLayoutMismatch{Key: m.Key, What: "buffer count", Want: 2, Got: 3}, m.Place(&other))
}

func TestFirstFragmentMetadata(t *testing.T) {
	packets := fragments('S', 11, 2, 256)
	packets[0].LoadIndicator = 3
	packets[0].Extra18 = 18
	packets[0].Extra20 = 20
	packets[1].MasterCounter = 1

	m := assemble(t, packets)
	assert.Equal(t, "S", m.TypeCode())
	assert.Equal(t, uint32(1011), m.MasterCounter)
	assert.Equal(t, uint16(3), m.LoadIndicator)
	assert.Equal(t, uint16(18), m.Extra18)
	assert.Equal(t, uint32(20), m.Extra20)
	assert.False(t, m.Timestamp.IsZero())
}
