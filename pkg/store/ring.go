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

package store

import (
	"strings"
	"sync"

	"go.etcd.io/bbolt"
)

const (
	DefaultRealtimeRows = 1024
	// AdcSnapshotRows keeps few of the large and rarely used ADC snapshots
	AdcSnapshotRows = 16
	// LongArrayPoints caps the realtime size of arrays longer than LongArrayLength
	LongArrayPoints = 1 << 20
	LongArrayLength = 1024
)

// ArrayCapacity returns how many entries of an array the realtime ring keeps
func ArrayCapacity(name string, length, rows int) int {
	var capacity int
	switch {
	case strings.Contains(strings.ToLower(name), "adc"):
		capacity = AdcSnapshotRows
	case length > LongArrayLength:
		capacity = LongArrayPoints / length
	default:
		capacity = rows
	}
	if capacity < 1 {
		capacity = 1
	}
	return capacity
}

// Snapshot is the most recent measurement of one type
type Snapshot struct {
	Name   string `json:"name"`
	Row    Row    `json:"row"`
	Arrays Arrays `json:"arrays"`
}

// Ring is the realtime store. Every measurement type keeps at most Rows table
// rows and a circular slot per array entry. Writers serialize on the ring lock,
// readers use read transactions and never wait for writers.
type Ring struct {
	mu         sync.Mutex
	closed     bool
	rows       int
	schema     Schema
	capacities map[string]map[string]int
	*Container
}

func NewRing(path string, schema Schema, personality string, rows int) (*Ring, error) {
	if rows < 1 {
		rows = DefaultRealtimeRows
	}
	c, err := CreateContainer(path, schema, personality)
	if err != nil {
		return nil, err
	}
	capacities := make(map[string]map[string]int)
	for _, t := range schema.Types {
		capacities[t.Name] = make(map[string]int)
		for name, length := range t.Arrays {
			capacities[t.Name][name] = ArrayCapacity(name, length, rows)
		}
	}
	return &Ring{
		rows:       rows,
		schema:     schema,
		capacities: capacities,
		Container:  c,
	}, nil
}

// Capacity returns the number of slots of an array, 0 if unknown
func (r *Ring) Capacity(name, array string) int {
	return r.capacities[name][array]
}

// Record appends a row, dropping the oldest one when the table is full,
// and writes the arrays at the current cursor slot.
func (r *Ring) Record(name string, row Row, arrays Arrays) error {
	t, ok := r.schema.Type(name)
	if !ok {
		return ErrUnknownMeasurement{Name: name}
	}
	if err := checkArrays(t, arrays); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrStoreClosed{What: r.Path}
	}

	return r.DB.Update(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		table := g.Bucket(tableBucket)
		meta := g.Bucket(metaBucket)

		rows := btoi(meta.Get(rowsKey))
		if rows >= uint64(r.rows) {
			k, _ := table.Cursor().First()
			if k != nil {
				if err = table.Delete(k); err != nil {
					return err
				}
				rows--
			}
		}
		if _, err = appendRow(table, row); err != nil {
			return err
		}
		rows++

		cursor := btoi(meta.Get(cursorKey))
		arrayBuckets := g.Bucket(arraysBucket)
		for array, values := range arrays {
			slot := cursor % uint64(r.capacities[name][array])
			if err = arrayBuckets.Bucket([]byte(array)).Put(itob(slot), encodeArray(values)); err != nil {
				return err
			}
		}

		if err = meta.Put(cursorKey, itob(cursor+1)); err != nil {
			return err
		}
		return meta.Put(rowsKey, itob(rows))
	})
}

// Info appends a row to the realtime info table
func (r *Ring) Info(row Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrStoreClosed{What: r.Path}
	}
	return r.AppendInfo(row)
}

// Latest returns the last recorded row and arrays of a measurement type
func (r *Ring) Latest(name string) (*Snapshot, error) {
	snapshot := &Snapshot{Name: name, Arrays: Arrays{}}
	err := r.DB.View(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		cursor := btoi(g.Bucket(metaBucket).Get(cursorKey))
		_, last := g.Bucket(tableBucket).Cursor().Last()
		if cursor == 0 || last == nil {
			return ErrNoData{Name: name}
		}
		if snapshot.Row, err = decodeRow(last); err != nil {
			return err
		}
		arrays := g.Bucket(arraysBucket)
		for array, capacity := range r.capacities[name] {
			data := arrays.Bucket([]byte(array)).Get(itob((cursor - 1) % uint64(capacity)))
			if data != nil {
				snapshot.Arrays[array] = decodeArray(data)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Cursor is the number of measurements of the type recorded so far
func (r *Ring) Cursor(name string) (uint64, error) {
	var cursor uint64
	err := r.DB.View(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		cursor = btoi(g.Bucket(metaBucket).Get(cursorKey))
		return nil
	})
	return cursor, err
}

func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.Container.Close()
}
