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
	"sync"

	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-ibob/pkg/log"
)

// Archive is the append-only store of a recording session. It is valid only
// between Open and Close, writes outside of that window are skipped.
type Archive struct {
	mu     sync.Mutex
	schema Schema
	c      *Container
}

func NewArchive() *Archive {
	return &Archive{}
}

// Open creates the archive file. Opening an open archive is an error,
// the caller must Close first.
func (a *Archive) Open(path string, schema Schema, personality string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c != nil {
		return ErrArchiveOpen{Path: a.c.Path}
	}
	c, err := CreateContainer(path, schema, personality)
	if err != nil {
		return err
	}
	a.c = c
	a.schema = schema
	log.Info("Archive opened: %s", path)
	return nil
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		return nil
	}
	path := a.c.Path
	err := a.c.Close()
	a.c = nil
	log.Info("Archive closed: %s", path)
	return err
}

func (a *Archive) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.c != nil
}

// Path returns the file of the open archive or an empty string
func (a *Archive) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		return ""
	}
	return a.c.Path
}

// Record appends one measurement: a row and one entry to every array
func (a *Archive) Record(name string, row Row, arrays Arrays) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		log.Warning("No archive open, measurement %s not recorded", name)
		return nil
	}
	t, ok := a.schema.Type(name)
	if !ok {
		return ErrUnknownMeasurement{Name: name}
	}
	if err := checkArrays(t, arrays); err != nil {
		return err
	}
	return a.c.DB.Update(func(tx *bbolt.Tx) error {
		g, err := group(tx, name)
		if err != nil {
			return err
		}
		if _, err = appendRow(g.Bucket(tableBucket), row); err != nil {
			return err
		}
		arrayBuckets := g.Bucket(arraysBucket)
		for array, values := range arrays {
			b := arrayBuckets.Bucket([]byte(array))
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			// sequences start at 1, slots at 0
			if err = b.Put(itob(seq-1), encodeArray(values)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Info appends a row to the archive info table
func (a *Archive) Info(row Row) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		log.Warning("No archive open, info not recorded")
		return nil
	}
	return a.c.AppendInfo(row)
}

// Comment appends a user comment, it fails when nothing is being recorded
func (a *Archive) Comment(user, comment string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		log.Warning("No archive open, cannot write comment")
		return ErrStoreClosed{What: "archive"}
	}
	return a.c.AppendComment(user, comment)
}
