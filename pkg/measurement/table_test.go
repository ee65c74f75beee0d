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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	measurements []*Measurement
}

func (d *dispatched) add(m *Measurement) {
	d.measurements = append(d.measurements, m)
}

func TestTwoBufferMeasurementDispatchedOnce(t *testing.T) {
	d := &dispatched{}
	table := NewTable("ibob0", DefaultMaxPending, d.add)

	packets := fragments('S', 5, 2, 256)
	require.Len(t, packets, 2)

	require.NoError(t, table.Insert(packets[0]))
	assert.Empty(t, d.measurements)
	assert.Equal(t, 1, table.Len())

	require.NoError(t, table.Insert(packets[1]))
	require.Len(t, d.measurements, 1)
	assert.Equal(t, Key{Type: 'S', SequenceNumber: 5}, d.measurements[0].Key)
	assert.Equal(t, 0, table.Len())

	// a late duplicate starts a new measurement rather than a second dispatch
	require.NoError(t, table.Insert(packets[1]))
	assert.Len(t, d.measurements, 1)
	assert.Equal(t, 1, table.Len())
}

func TestSingleFragmentMeasurement(t *testing.T) {
	d := &dispatched{}
	table := NewTable("ibob0", DefaultMaxPending, d.add)

	require.NoError(t, table.Insert(fragments('A', 1, 1, 128)[0]))
	assert.Len(t, d.measurements, 1)
	assert.Equal(t, 0, table.Len())
}

func TestInterleavedMeasurements(t *testing.T) {
	d := &dispatched{}
	table := NewTable("ibob0", DefaultMaxPending, d.add)

	a := fragments('S', 1, 2, 1024)
	b := fragments('S', 2, 2, 1024)
	c := fragments('A', 1, 2, 1024)
	for i := range a {
		require.NoError(t, table.Insert(b[len(b)-1-i]))
		require.NoError(t, table.Insert(a[i]))
		require.NoError(t, table.Insert(c[i]))
	}

	require.Len(t, d.measurements, 3)
	keys := []Key{d.measurements[0].Key, d.measurements[1].Key, d.measurements[2].Key}
	assert.ElementsMatch(t, []Key{{'S', 1}, {'S', 2}, {'A', 1}}, keys)
}

func TestEvictionBoundsTable(t *testing.T) {
	for _, maxPending := range []int{20, 7, 1} {
		d := &dispatched{}
		table := NewTable("ibob0", maxPending, d.add)

		for seq := uint32(0); seq < 100; seq++ {
			// first buffer only, never completes
			require.NoError(t, table.Insert(fragments('S', seq, 2, 256)[0]))
			assert.LessOrEqual(t, table.Len(), maxPending)
		}
		assert.Empty(t, d.measurements)
		assert.Equal(t, uint64(100-table.Len()), table.Evicted())
	}
}

func TestEvictionDropsOldestHalf(t *testing.T) {
	table := NewTable("ibob0", 20, nil)
	for seq := uint32(0); seq < 20; seq++ {
		require.NoError(t, table.Insert(fragments('S', seq, 2, 256)[0]))
	}
	require.Equal(t, 20, table.Len())

	require.NoError(t, table.Insert(fragments('S', 20, 2, 256)[0]))

	assert.Equal(t, 11, table.Len())
	assert.Equal(t, uint64(10), table.Evicted())
	pending := table.Pending()
	assert.Equal(t, Key{'S', 10}, pending[0])
	assert.Equal(t, Key{'S', 20}, pending[len(pending)-1])
}

func TestEvictedMeasurementRestartsFromScratch(t *testing.T) {
	d := &dispatched{}
	table := NewTable("ibob0", 2, d.add)

	old := fragments('S', 1, 2, 256)
	require.NoError(t, table.Insert(old[0]))
	require.NoError(t, table.Insert(fragments('S', 2, 2, 256)[0]))
	require.NoError(t, table.Insert(fragments('S', 3, 2, 256)[0]))
	assert.NotContains(t, table.Pending(), Key{'S', 1})

	// the second half alone cannot complete the evicted measurement
	require.NoError(t, table.Insert(old[1]))
	assert.Empty(t, d.measurements)
}

func TestInsertErrorsKeepTableConsistent(t *testing.T) {
	d := &dispatched{}
	table := NewTable("ibob0", DefaultMaxPending, d.add)

	packets := fragments('S', 4, 2, 256)
	bad := *packets[0]
	bad.BufferIndex = 9
	err := table.Insert(&bad)
	assert.IsType(t, ErrAssemblyOverflow{}, err)
	assert.Equal(t, 0, table.Len())

	require.NoError(t, table.Insert(packets[0]))
	mismatch := *packets[1]
	mismatch.BufferDepth = 1024
	assert.IsType(t, ErrLayoutMismatch{}, table.Insert(&mismatch))
	assert.Equal(t, 1, table.Len())

	require.NoError(t, table.Insert(packets[1]))
	assert.Len(t, d.measurements, 1)
}
