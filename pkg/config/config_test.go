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

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardAddressing(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "192.168.0.19", cfg.BoardAddress(3))
	assert.Equal(t, 59019, cfg.DataPort(3))
	assert.Equal(t, "192.168.0.19:7", cfg.ControlAddress(3))
	assert.Equal(t, "127.0.0.1:8103", cfg.SessionApiAddress(3))
	assert.Equal(t, time.Second, cfg.ControlBudget())
	assert.Equal(t, 200*time.Millisecond, cfg.ControlAttemptTimeout())
}

func TestPersistAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	cfg := NewDefaultConfig()
	cfg.SetPath(path)
	cfg.Devices = append(cfg.Devices, &Device{ID: 5, Personality: "TwoPolRealSpectrometer", AdcClock: 800})
	cfg.MaxPending = 40

	require.NoError(t, cfg.Persist(false))
	assert.ErrorIs(t, cfg.Persist(false), ErrConfigFileExists{Path: path})

	loaded := NewDefaultConfig()
	loaded.SetPath(path)
	require.NoError(t, loaded.Load())

	assert.Equal(t, 40, loaded.MaxPending)
	dev, err := loaded.Device(5)
	require.NoError(t, err)
	assert.Equal(t, "TwoPolRealSpectrometer", dev.Personality)
	assert.Equal(t, 800.0, dev.AdcClock)

	_, err = loaded.Device(9)
	assert.Equal(t, ErrDeviceNotFound{ID: 9}, err)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetPath(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultMaxPending, cfg.MaxPending)
}
