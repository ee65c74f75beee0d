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

package manager

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/srv/registry"
)

const (
	// StopTimeout is how long a session gets to exit after quit before it is killed
	StopTimeout   = 5 * time.Second
	RecordDirMode = 0777
)

// SessionClient is the part of the session API the manager drives
type SessionClient interface {
	RecordStart(path string) error
	RecordStop() error
	Quit() error
}

type ClientFactory func(address string) SessionClient

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// Manager runs one session process per board and fans recording requests out to them
type Manager struct {
	*config.Config
	mu         sync.Mutex
	procs      map[int]*process
	registry   *registry.Registry
	executable string
	client     ClientFactory
	stopWait   time.Duration
}

// NewManager ...
func NewManager(cfg *config.Config, executable string, client ClientFactory) *Manager {
	return &Manager{
		Config:     cfg,
		procs:      make(map[int]*process),
		registry:   registry.NewRegistry(cfg.RegistryPath()),
		executable: executable,
		client:     client,
		stopWait:   StopTimeout,
	}
}

// Start launches a session process for board id. Its personality comes from the config.
func (m *Manager) Start(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.procs[id]; ok {
		return ErrAlreadyRunning{ID: id, Pid: p.cmd.Process.Pid}
	}
	if _, err := m.Device(id); err != nil {
		log.Warning("ibob%d is not in the config, starting with defaults", id)
	}
	args := []string{"session", "run", "--device", strconv.Itoa(id)}
	if path := m.Path(); path != "" {
		args = append(args, "--config", path)
	}
	cmd := exec.Command(m.executable, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	p := &process{cmd: cmd, done: make(chan struct{})}
	m.procs[id] = p
	log.Info("Started session ibob%d with pid %d", id, cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		log.Info("Session ibob%d exited: %v", id, err)
		m.mu.Lock()
		if m.procs[id] == p {
			delete(m.procs, id)
		}
		m.mu.Unlock()
		close(p.done)
	}()
	return nil
}

// Stop asks the session to quit and kills it if it does not exit in time
func (m *Manager) Stop(id int) error {
	m.mu.Lock()
	p, ok := m.procs[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotRunning{ID: id}
	}
	if err := m.sessionClient(id).Quit(); err != nil {
		log.Warning("ibob%d did not accept quit: %s", id, err)
	}
	select {
	case <-p.done:
		return nil
	case <-time.After(m.stopWait):
	}
	log.Warning("ibob%d did not exit in %s, killing", id, m.stopWait)
	if err := p.cmd.Process.Kill(); err != nil {
		return err
	}
	<-p.done
	return nil
}

// StopAll stops every session started by this manager
func (m *Manager) StopAll() {
	for _, id := range m.Running() {
		if err := m.Stop(id); err != nil {
			log.Warning("%s", err)
		}
	}
}

// Running lists the boards with a live session process started by this manager
func (m *Manager) Running() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.procs))
	for id := range m.procs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Sessions lists every registered session on the host
func (m *Manager) Sessions() ([]*registry.Record, error) {
	return m.registry.List()
}

func (m *Manager) sessionClient(id int) SessionClient {
	address := m.SessionApiAddress(id)
	if rec, err := m.registry.Lookup(id); err == nil && rec.ApiAddress != "" {
		address = rec.ApiAddress
	}
	return m.client(address)
}

// targets returns ids, or every registered session when ids is empty
func (m *Manager) targets(ids []int) ([]int, error) {
	if len(ids) > 0 {
		return ids, nil
	}
	records, err := m.registry.List()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

// RecordPath is the archive of board id inside a recording directory
func RecordPath(dir string, id int) string {
	return filepath.Join(dir, fmt.Sprintf("ibob%d.db", id))
}

// StartRecording creates dir and asks each session to write its own archive there
func (m *Manager) StartRecording(ids []int, dir string) error {
	if err := os.MkdirAll(dir, RecordDirMode); err != nil {
		return err
	}
	ids, err := m.targets(ids)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		path := RecordPath(dir, id)
		if err := m.sessionClient(id).RecordStart(path); err != nil {
			log.Error("ibob%d could not start recording to %s: %s", id, path, err)
			errs = append(errs, err)
			continue
		}
		log.Info("ibob%d recording to %s", id, path)
	}
	return errors.Join(errs...)
}

func (m *Manager) StopRecording(ids []int) error {
	ids, err := m.targets(ids)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := m.sessionClient(id).RecordStop(); err != nil {
			log.Error("ibob%d could not stop recording: %s", id, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
