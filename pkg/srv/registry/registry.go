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

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"sigs.k8s.io/yaml"

	"jinr.ru/greenlab/go-ibob/pkg/log"
)

const (
	BucketName = "sessions"
	// OpenTimeout bounds the wait for the file lock held by another session process
	OpenTimeout = 2 * time.Second
)

// Record describes one running session process
type Record struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Pid        int       `json:"pid"`
	ApiAddress string    `json:"apiAddress"`
	DataPort   int       `json:"dataPort"`
	Registered time.Time `json:"registered"`
}

// Registry is shared by all session processes on the host. The file is
// opened per operation so that no process holds the lock for long.
type Registry struct {
	Path string
}

func NewRegistry(path string) *Registry {
	return &Registry{Path: path}
}

func key(id int) []byte {
	return []byte(strconv.Itoa(id))
}

func (r *Registry) update(fn func(b *bbolt.Bucket) error) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0755); err != nil {
		return err
	}
	db, err := bbolt.Open(r.Path, 0600, &bbolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func (r *Registry) view(fn func(b *bbolt.Bucket) error) error {
	if _, err := os.Stat(r.Path); os.IsNotExist(err) {
		return fn(nil)
	}
	db, err := bbolt.Open(r.Path, 0600, &bbolt.Options{Timeout: OpenTimeout, ReadOnly: true})
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(func(tx *bbolt.Tx) error {
		return fn(tx.Bucket([]byte(BucketName)))
	})
}

// Register stores the record, replacing whatever was left by a previous process
func (r *Registry) Register(rec *Record) error {
	if rec.Registered.IsZero() {
		rec.Registered = time.Now()
	}
	if rec.Name == "" {
		rec.Name = fmt.Sprintf("ibob%d", rec.ID)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return r.update(func(b *bbolt.Bucket) error {
		if old := b.Get(key(rec.ID)); old != nil {
			prev := &Record{}
			if err := yaml.Unmarshal(old, prev); err == nil && prev.Pid != rec.Pid {
				log.Warning("Replacing stale registration of %s: pid %d since %s",
					prev.Name, prev.Pid, prev.Registered.Format(time.RFC3339))
			}
		}
		log.Debug("Registering %s at %s", rec.Name, rec.ApiAddress)
		return b.Put(key(rec.ID), data)
	})
}

// Deregister removes the record only if it still belongs to pid
func (r *Registry) Deregister(id, pid int) error {
	return r.update(func(b *bbolt.Bucket) error {
		old := b.Get(key(id))
		if old == nil {
			return ErrSessionNotFound{ID: id}
		}
		prev := &Record{}
		if err := yaml.Unmarshal(old, prev); err != nil {
			return err
		}
		if prev.Pid != pid {
			log.Warning("Not deregistering ibob%d: registered by pid %d", id, prev.Pid)
			return nil
		}
		return b.Delete(key(id))
	})
}

func (r *Registry) Lookup(id int) (*Record, error) {
	rec := &Record{}
	if err := r.view(func(b *bbolt.Bucket) error {
		if b == nil {
			return ErrSessionNotFound{ID: id}
		}
		data := b.Get(key(id))
		if data == nil {
			return ErrSessionNotFound{ID: id}
		}
		return yaml.Unmarshal(data, rec)
	}); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns all registered sessions ordered by board id
func (r *Registry) List() ([]*Record, error) {
	var records []*Record
	if err := r.view(func(b *bbolt.Bucket) error {
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, data []byte) error {
			rec := &Record{}
			if err := yaml.Unmarshal(data, rec); err != nil {
				log.Error("Error while unmarshalling session record: %s", err)
				return nil
			}
			records = append(records, rec)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
