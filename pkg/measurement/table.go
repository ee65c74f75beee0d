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
	"container/list"

	"jinr.ru/greenlab/go-ibob/pkg/layers"
	"jinr.ru/greenlab/go-ibob/pkg/log"
)

const (
	DefaultMaxPending = 20
)

// DispatchFunc receives every completed measurement exactly once
type DispatchFunc func(m *Measurement)

// Table holds measurements in flight keyed by (type, sequence number).
// The arrival list keeps keys in first-seen order and is what eviction
// trims when the table grows over MaxPending.
// Table is not safe for concurrent use, it belongs to the receive loop.
type Table struct {
	deviceName string
	maxPending int
	pending    map[Key]*list.Element
	arrivals   *list.List
	dispatch   DispatchFunc
	evicted    uint64
}

func NewTable(deviceName string, maxPending int, dispatch DispatchFunc) *Table {
	if maxPending < 1 {
		maxPending = DefaultMaxPending
	}
	return &Table{
		deviceName: deviceName,
		maxPending: maxPending,
		pending:    make(map[Key]*list.Element),
		arrivals:   list.New(),
		dispatch:   dispatch,
	}
}

// Insert places a fragment and dispatches its measurement once it is complete.
// Placement errors are returned after the table invariants are restored.
func (t *Table) Insert(p *layers.DataPacket) error {
	key := Key{Type: p.Type, SequenceNumber: p.SequenceNumber}

	var m *Measurement
	var err error
	if e, ok := t.pending[key]; ok {
		m = e.Value.(*Measurement)
		err = m.Place(p)
	} else {
		// a first fragment that does not fit its own layout starts nothing
		m, err = New(p)
		if err == nil {
			t.pending[key] = t.arrivals.PushBack(m)
		}
	}

	if err == nil && m.IsComplete() {
		t.remove(key)
		log.Debug("Measurement completed: %s %s", t.deviceName, key)
		if t.dispatch != nil {
			t.dispatch(m)
		}
	}

	if t.arrivals.Len() > t.maxPending {
		half := t.maxPending / 2
		if half < 1 {
			half = 1
		}
		n := t.evictOldest(half)
		log.Warning("%s too many incomplete measurements, dropped %d", t.deviceName, n)
	}
	return err
}

func (t *Table) remove(key Key) {
	if e, ok := t.pending[key]; ok {
		t.arrivals.Remove(e)
		delete(t.pending, key)
	}
}

func (t *Table) evictOldest(n int) int {
	evicted := 0
	for evicted < n {
		e := t.arrivals.Front()
		if e == nil {
			break
		}
		m := t.arrivals.Remove(e).(*Measurement)
		delete(t.pending, m.Key)
		log.Debug("Evicting measurement: %s %s missing: %d", t.deviceName, m.Key, m.Missing())
		evicted++
	}
	t.evicted += uint64(evicted)
	return evicted
}

// Len is the number of measurements in flight
func (t *Table) Len() int {
	return t.arrivals.Len()
}

// Evicted is the total number of measurements dropped by eviction
func (t *Table) Evicted() uint64 {
	return t.evicted
}

// Pending returns the keys in flight in first-seen order
func (t *Table) Pending() []Key {
	keys := make([]Key, 0, t.arrivals.Len())
	for e := t.arrivals.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*Measurement).Key)
	}
	return keys
}
