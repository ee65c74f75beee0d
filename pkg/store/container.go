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
	"encoding/binary"
	"math"
	"os"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ibob/pkg/log"
)

var (
	fileInfoBucket     = []byte("file_info")
	infoBucket         = []byte("info")
	commentsBucket     = []byte("comments")
	measurementsBucket = []byte("measurements")
	tableBucket        = []byte("table")
	arraysBucket       = []byte("arrays")
	metaBucket         = []byte("meta")

	personalityKey = []byte("personality")
	rowsKey        = []byte("rows")
	cursorKey      = []byte("cursor")
)

const (
	OpenTimeout = time.Second
)

// Container is a bbolt file laid out as
//
//	file_info/personality
//	info/<seq>                          info table rows
//	comments/<seq>                      comment rows
//	measurements/<name>/table/<seq>     one row per measurement
//	measurements/<name>/arrays/<array>/<slot>
//	measurements/<name>/meta            cursor and row count
type Container struct {
	DB   *bbolt.DB
	Path string
}

// CreateContainer truncates any file at path and creates the buckets for the schema
func CreateContainer(path string, schema Schema, personality string) (*Container, error) {
	if _, err := os.Stat(path); err == nil {
		log.Warning("File %s already exists, overwriting", path)
		if err = os.Remove(path); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		fileInfo, err := tx.CreateBucketIfNotExists(fileInfoBucket)
		if err != nil {
			return err
		}
		if err = fileInfo.Put(personalityKey, []byte(personality)); err != nil {
			return err
		}
		for _, name := range [][]byte{infoBucket, commentsBucket} {
			if _, err = tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		groups, err := tx.CreateBucketIfNotExists(measurementsBucket)
		if err != nil {
			return err
		}
		for _, t := range schema.Types {
			g, err := groups.CreateBucketIfNotExists([]byte(t.Name))
			if err != nil {
				return err
			}
			for _, name := range [][]byte{tableBucket, metaBucket} {
				if _, err = g.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			arrays, err := g.CreateBucketIfNotExists(arraysBucket)
			if err != nil {
				return err
			}
			for _, name := range t.ArrayNames() {
				if _, err = arrays.CreateBucketIfNotExists([]byte(name)); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Container{DB: db, Path: path}, nil
}

// OpenContainer opens an existing container for reading
func OpenContainer(path string) (*Container, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: OpenTimeout, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &Container{DB: db, Path: path}, nil
}

// Groups lists the measurement types stored in the container
func (c *Container) Groups() ([]string, error) {
	var names []string
	err := c.DB.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(measurementsBucket).ForEach(func(k, v []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (c *Container) Close() error {
	return c.DB.Close()
}

// Personality returns the decoder name the container was created for
func (c *Container) Personality() (string, error) {
	var personality string
	err := c.DB.View(func(tx *bbolt.Tx) error {
		personality = string(tx.Bucket(fileInfoBucket).Get(personalityKey))
		return nil
	})
	return personality, err
}

func group(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	g := tx.Bucket(measurementsBucket).Bucket([]byte(name))
	if g == nil {
		return nil, ErrUnknownMeasurement{Name: name}
	}
	return g, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func btoi(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// arrays are stored as float32, like the boards produce them
func encodeArray(values []float64) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(b[4*i:], math.Float32bits(float32(v)))
	}
	return b
}

func decodeArray(b []byte) []float64 {
	values := make([]float64, len(b)/4)
	for i := range values {
		values[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(b[4*i:])))
	}
	return values
}

func decodeRow(data []byte) (Row, error) {
	row := Row{}
	if err := yaml.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	return row, nil
}

// appendRow stores the row under the bucket's next sequence, which also becomes its ID column
func appendRow(b *bbolt.Bucket, row Row) (uint64, error) {
	id, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	row = row.Copy()
	row["ID"] = id
	data, err := yaml.Marshal(row)
	if err != nil {
		return 0, err
	}
	return id, b.Put(itob(id), data)
}

func timestamped(row Row) Row {
	row = row.Copy()
	if _, ok := row["Timestamp"]; !ok {
		row["Timestamp"] = float64(time.Now().UnixNano()) / 1e9
	}
	return row
}

func checkArrays(t MeasurementType, arrays Arrays) error {
	for name, values := range arrays {
		length, ok := t.Arrays[name]
		if !ok {
			return ErrUnknownMeasurement{Name: t.Name + "/" + name}
		}
		if len(values) != length {
			return ErrArrayLength{Name: t.Name + "/" + name, Want: length, Got: len(values)}
		}
	}
	return nil
}

// AppendInfo adds a row to the info table
func (c *Container) AppendInfo(row Row) error {
	return c.DB.Update(func(tx *bbolt.Tx) error {
		_, err := appendRow(tx.Bucket(infoBucket), timestamped(row))
		return err
	})
}

// AppendComment adds a row to the comment table
func (c *Container) AppendComment(user, comment string) error {
	return c.DB.Update(func(tx *bbolt.Tx) error {
		_, err := appendRow(tx.Bucket(commentsBucket), timestamped(Row{"UserID": user, "Comment": comment}))
		return err
	})
}

func readRows(b *bbolt.Bucket) ([]Row, error) {
	var rows []Row
	err := b.ForEach(func(k, v []byte) error {
		row, err := decodeRow(v)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// Rows returns the row table of a measurement type in insertion order
func (c *Container) Rows(name string) ([]Row, error) {
	var rows []Row
	err := c.DB.View(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		rows, err = readRows(g.Bucket(tableBucket))
		return err
	})
	return rows, err
}

func (c *Container) Info() ([]Row, error) {
	var rows []Row
	err := c.DB.View(func(tx *bbolt.Tx) error {
		var err error
		rows, err = readRows(tx.Bucket(infoBucket))
		return err
	})
	return rows, err
}

func (c *Container) Comments() ([]Row, error) {
	var rows []Row
	err := c.DB.View(func(tx *bbolt.Tx) error {
		var err error
		rows, err = readRows(tx.Bucket(commentsBucket))
		return err
	})
	return rows, err
}

// ReadArray returns the array stored at the given slot, nil if the slot is empty
func (c *Container) ReadArray(name, array string, slot uint64) ([]float64, error) {
	var values []float64
	err := c.DB.View(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		b := g.Bucket(arraysBucket).Bucket([]byte(array))
		if b == nil {
			return ErrUnknownMeasurement{Name: name + "/" + array}
		}
		if data := b.Get(itob(slot)); data != nil {
			values = decodeArray(data)
		}
		return nil
	})
	return values, err
}

// ArrayLength is the number of entries an array holds along its first axis
func (c *Container) ArrayLength(name, array string) (int, error) {
	var n int
	err := c.DB.View(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		b := g.Bucket(arraysBucket).Bucket([]byte(array))
		if b == nil {
			return ErrUnknownMeasurement{Name: name + "/" + array}
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}
