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

package control

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/srv/control/ifc"
)

const (
	BucketNamePrefix = "reg_"
)

// RegState keeps the last value written to or read from every register
type RegState struct {
	DB *bbolt.DB
}

var _ ifc.State = &RegState{}

func NewRegState(path string, devices ...string) (*RegState, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bbolt.Tx) error {
		for _, device := range devices {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucketName(device))); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &RegState{DB: db}, nil
}

func bucketName(deviceName string) string {
	return fmt.Sprintf("%s%s", BucketNamePrefix, deviceName)
}

func uint32ToByte(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func (s *RegState) Close() error {
	return s.DB.Close()
}

// SetReg ...
func (s *RegState) SetReg(deviceName, name string, value uint32) error {
	log.Debug("Setting register: %s %s: 0x%x", deviceName, name, value)
	return s.DB.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(deviceName)}
		}
		return b.Put([]byte(name), uint32ToByte(value))
	})
}

// GetReg ...
func (s *RegState) GetReg(deviceName, name string) (uint32, error) {
	var value uint32
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(deviceName)}
		}
		v := b.Get([]byte(name))
		if v == nil {
			return ErrRegNotFound{Name: name}
		}
		value = binary.BigEndian.Uint32(v)
		return nil
	}); err != nil {
		return 0, err
	}
	return value, nil
}

// GetRegAll returns every cached register of the device
func (s *RegState) GetRegAll(deviceName string) (map[string]uint32, error) {
	regs := make(map[string]uint32)
	if err := s.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName(deviceName)))
		if b == nil {
			return ErrBucketNotFound{Name: bucketName(deviceName)}
		}
		return b.ForEach(func(k, v []byte) error {
			regs[string(k)] = binary.BigEndian.Uint32(v)
			return nil
		})
	}); err != nil {
		return nil, err
	}
	return regs, nil
}
