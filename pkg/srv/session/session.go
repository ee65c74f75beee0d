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

package session

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/device"
	deviceifc "jinr.ru/greenlab/go-ibob/pkg/device/ifc"
	"jinr.ru/greenlab/go-ibob/pkg/layers"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/measurement"
	"jinr.ru/greenlab/go-ibob/pkg/personality"
	"jinr.ru/greenlab/go-ibob/pkg/srv"
	"jinr.ru/greenlab/go-ibob/pkg/srv/control"
	"jinr.ru/greenlab/go-ibob/pkg/srv/registry"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

const (
	// LoopTimeout is the longest the event loop sleeps without a datagram
	LoopTimeout = time.Second
	// InQueueSize is the number of datagrams buffered between the reader and the loop
	InQueueSize = 4096
	// shutdownTimeout bounds the wait for in-flight API requests on exit
	shutdownTimeout = 2 * time.Second
)

type State int32

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Status is the snapshot of session counters served by the API
type Status struct {
	Name           string   `json:"name"`
	ID             int      `json:"id"`
	State          string   `json:"state"`
	Personality    string   `json:"personality"`
	Capabilities   []string `json:"capabilities,omitempty"`
	Writing        bool     `json:"writing"`
	ArchivePath    string   `json:"archivePath,omitempty"`
	Packets        uint64   `json:"packets"`
	Malformed      uint64   `json:"malformed"`
	Measurements   uint64   `json:"measurements"`
	Dropped        uint64   `json:"dropped"`
	AssemblyErrors uint64   `json:"assemblyErrors"`
	DecodeErrors   uint64   `json:"decodeErrors"`
	RecordErrors   uint64   `json:"recordErrors"`
	Missed         uint64   `json:"missed"`
	Pending        int64    `json:"pending"`
}

// Session owns one board: its data socket, control channel, measurement
// table, decoder and stores. HandleDatagram and everything it calls run on
// the event loop goroutine only; the rest is safe for concurrent use.
type Session struct {
	srv.Server
	id    int
	name  string
	state atomic.Int32

	mu       sync.Mutex
	decoder  personality.Decoder
	realtime *store.Ring
	lastAcc  map[string]int64

	archive    *store.Archive
	table      *measurement.Table
	device     deviceifc.Device
	registry   *registry.Registry
	registered bool
	metrics    *Metrics
	api        *ApiServer

	quit     chan struct{}
	quitOnce sync.Once

	packets        atomic.Uint64
	malformed      atomic.Uint64
	measurements   atomic.Uint64
	dropped        atomic.Uint64
	assemblyErrors atomic.Uint64
	decodeErrors   atomic.Uint64
	recordErrors   atomic.Uint64
	missed         atomic.Uint64
	pending        atomic.Int64
}

var _ personality.Host = &Session{}
var _ personality.Streamer = &Session{}

type Option func(*Session)

// WithDevice uses an already connected board instead of dialing one in Run
func WithDevice(d deviceifc.Device) Option {
	return func(s *Session) {
		s.device = d
	}
}

func WithRegistry(r *registry.Registry) Option {
	return func(s *Session) {
		s.registry = r
	}
}

// NewSession ...
func NewSession(cfg *config.Config, id int, opts ...Option) (*Session, error) {
	s := &Session{
		Server: srv.Server{
			Context: context.Background(),
			Config:  cfg,
			ChIn:    make(chan srv.InPacket, InQueueSize),
		},
		id:      id,
		name:    fmt.Sprintf("ibob%d", id),
		archive: store.NewArchive(),
		lastAcc: make(map[string]int64),
		quit:    make(chan struct{}),
	}
	s.table = measurement.NewTable(s.name, cfg.MaxPending, s.dispatch)
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = NewMetrics(s)
	api, err := NewApiServer(cfg.SessionApiAddress(id), s)
	if err != nil {
		return nil, err
	}
	s.api = api
	return s, nil
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) ID() int {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Run binds the sockets, registers the session, serves the API and runs
// the event loop until Quit is called or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.Context = ctx

	s.UDPAddr = &net.UDPAddr{Port: s.DataPort(s.id)}
	log.Info("%s listening for data on port %d", s.name, s.UDPAddr.Port)
	conn, err := net.ListenUDP("udp", s.UDPAddr)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err = conn.SetReadBuffer(s.ReceiveBuffer); err != nil {
		log.Warning("%s unable to set receive buffer to %d: %s", s.name, s.ReceiveBuffer, err)
	}

	if s.device == nil {
		ch, err := control.Dial(s.name, s.ControlAddress(s.id),
			control.WithBudget(s.ControlBudget()),
			control.WithAttemptTimeout(s.ControlAttemptTimeout()),
			control.WithReuseRequestID(s.ReuseRequestID))
		if err != nil {
			return err
		}
		defer ch.Close()
		regState, err := control.NewRegState(s.RegStatePath(s.id), s.name)
		if err != nil {
			return err
		}
		defer regState.Close()
		s.device = device.NewDevice(s.id, s.DataPort(s.id), ch, regState)
	}

	s.state.Store(int32(Running))
	s.register()

	errChan := make(chan error, 2)
	go s.ReadLoop(conn, errChan)
	go func() {
		if err := s.api.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	if d, err := s.Config.Device(s.id); err == nil && d.Personality != "" {
		if err = s.SetPersonality(d.Personality, d.AdcClock); err != nil {
			log.Warning("%s unable to set personality %s: %s", s.name, d.Personality, err)
		}
	}

	err = s.loop(ctx, errChan)
	s.Quit()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := s.api.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warning("%s API shutdown: %s", s.name, shutdownErr)
	}
	return err
}

func (s *Session) register() {
	if s.registry == nil {
		return
	}
	rec := &registry.Record{
		ID:         s.id,
		Name:       s.name,
		Pid:        os.Getpid(),
		ApiAddress: s.SessionApiAddress(s.id),
		DataPort:   s.DataPort(s.id),
	}
	if err := s.registry.Register(rec); err != nil {
		log.Warning("%s could not register: %s", s.name, err)
		return
	}
	s.registered = true
}

func (s *Session) loop(ctx context.Context, errChan <-chan error) error {
	ticker := time.NewTicker(LoopTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.quit:
			return nil
		case err := <-errChan:
			return err
		case p, ok := <-s.ChIn:
			if !ok {
				return nil
			}
			s.HandleDatagram(p.Data)
			s.drain()
		case <-ticker.C:
			if n := s.pending.Load(); n > 0 {
				log.Debug("%s %d measurements pending", s.name, n)
			}
		}
	}
}

// drain handles every datagram already queued
func (s *Session) drain() {
	for {
		select {
		case p, ok := <-s.ChIn:
			if !ok {
				return
			}
			s.HandleDatagram(p.Data)
		default:
			return
		}
	}
}

// HandleDatagram decodes one datagram and feeds it to the measurement table
func (s *Session) HandleDatagram(data []byte) {
	s.packets.Add(1)
	p, err := layers.DecodeDataPacket(data)
	if err != nil {
		s.malformed.Add(1)
		log.Debug("%s dropping datagram: %s", s.name, err)
		return
	}
	if err = s.table.Insert(p); err != nil {
		s.assemblyErrors.Add(1)
		log.Warning("%s %s", s.name, err)
	}
	s.pending.Store(int64(s.table.Len()))
	s.dropped.Store(s.table.Evicted())
}

func (s *Session) dispatch(m *measurement.Measurement) {
	s.measurements.Add(1)
	s.mu.Lock()
	dec, rt := s.decoder, s.realtime
	s.mu.Unlock()
	if dec == nil || rt == nil {
		log.Debug("%s no personality, dropping measurement %s", s.name, m.Key)
		return
	}

	start := time.Now()
	name, arrays, row, err := dec.Decode(m)
	if err != nil {
		s.decodeErrors.Add(1)
		log.Warning("%s could not decode measurement %s: %s", s.name, m.Key, err)
		return
	}
	if name == personality.SpectralPower {
		s.checkAccumulation(name, row)
	}
	if err = rt.Record(name, row, arrays); err != nil {
		s.recordErrors.Add(1)
		log.Warning("%s could not record measurement %s to realtime store: %s", s.name, m.Key, err)
	}
	if s.archive.IsOpen() {
		if err = s.archive.Record(name, row, arrays); err != nil {
			s.recordErrors.Add(1)
			log.Warning("%s could not record measurement %s to archive: %s", s.name, m.Key, err)
		}
	}
	s.metrics.recordLatency.Observe(time.Since(start).Seconds())
}

// checkAccumulation counts gaps between consecutive accumulation numbers
func (s *Session) checkAccumulation(name string, row store.Row) {
	acc, ok := row["AccNumber"].(int64)
	if !ok {
		return
	}
	s.mu.Lock()
	last, seen := s.lastAcc[name]
	s.lastAcc[name] = acc
	s.mu.Unlock()
	if seen && acc-last != 1 {
		s.missed.Add(1)
		log.Info("%s missed %d accumulations: %d -> %d", s.name, acc-last-1, last, acc)
	}
}

// SetPersonality assigns a decoder and creates the realtime store for it.
// Assignment is one-shot: the current decoder must be cleared first.
func (s *Session) SetPersonality(name string, adcClock float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archive.IsOpen() {
		log.Warning("%s cannot set personality while writing", s.name)
		return ErrRecording{Path: s.archive.Path()}
	}
	if s.decoder != nil {
		log.Warning("%s cannot set personality: it's already set", s.name)
		return ErrPersonalitySet{Current: s.decoder.Name()}
	}
	dec, err := personality.New(name, s, adcClock)
	if err != nil {
		return err
	}
	rt, err := store.NewRing(s.RealtimePath(s.id), dec.Schema(), dec.Name(), s.RealtimeRows)
	if err != nil {
		log.Error("%s could not init realtime store for %s: %s", s.name, name, err)
		return err
	}
	s.decoder = dec
	s.realtime = rt
	s.lastAcc = make(map[string]int64)
	log.Info("%s personality set to %s", s.name, name)
	return nil
}

// ClearPersonality drops the decoder and closes the realtime store
func (s *Session) ClearPersonality() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.Debug("%s clearing personality", s.name)
	s.decoder = nil
	if s.realtime == nil {
		return nil
	}
	rt := s.realtime
	s.realtime = nil
	log.Debug("%s closing realtime store", s.name)
	return rt.Close()
}

// Decoder returns the current decoder or nil
func (s *Session) Decoder() personality.Decoder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder
}

// StartWriting opens an archive at path, overwriting an existing file
func (s *Session) StartWriting(path string) error {
	dec := s.Decoder()
	if dec == nil {
		return ErrNoPersonality{}
	}
	if err := s.archive.Open(path, dec.Schema(), dec.Name()); err != nil {
		return err
	}
	recording := uuid.New()
	if err := s.archive.Info(store.Row{
		"RecordingID": recording.String(),
		"Personality": dec.Name(),
		"Board":       s.name,
	}); err != nil {
		log.Warning("%s could not write recording info: %s", s.name, err)
	}
	if cs, ok := dec.(personality.ConfigStorer); ok {
		if err := cs.StoreConfig(); err != nil {
			log.Warning("%s could not store board configuration: %s", s.name, err)
		}
	}
	log.Info("%s writing to %s, recording %s", s.name, path, recording)
	return nil
}

func (s *Session) StopWriting() error {
	if !s.archive.IsOpen() {
		return nil
	}
	log.Info("%s stopped writing to %s", s.name, s.archive.Path())
	return s.archive.Close()
}

func (s *Session) Writing() bool {
	return s.archive.IsOpen()
}

func (s *Session) WriteComment(user, comment string) error {
	return s.archive.Comment(user, comment)
}

// WriteInfo appends a row to the info tables of the realtime store and the archive
func (s *Session) WriteInfo(row store.Row) error {
	s.mu.Lock()
	rt := s.realtime
	s.mu.Unlock()
	var first error
	if rt != nil {
		first = rt.Info(row)
	}
	if err := s.archive.Info(row); err != nil && first == nil {
		first = err
	}
	return first
}

// Latest returns the most recent realtime record of a measurement type
func (s *Session) Latest(name string) (*store.Snapshot, error) {
	s.mu.Lock()
	rt := s.realtime
	s.mu.Unlock()
	if rt == nil {
		return nil, ErrNoPersonality{}
	}
	return rt.Latest(name)
}

// Info is the short status line: the packet count, prefixed with W while writing
func (s *Session) Info() string {
	if s.Writing() {
		return fmt.Sprintf("W %d", s.packets.Load())
	}
	return fmt.Sprintf("%d", s.packets.Load())
}

func (s *Session) Status() *Status {
	st := &Status{
		Name:           s.name,
		ID:             s.id,
		State:          s.State().String(),
		Writing:        s.archive.IsOpen(),
		ArchivePath:    s.archive.Path(),
		Packets:        s.packets.Load(),
		Malformed:      s.malformed.Load(),
		Measurements:   s.measurements.Load(),
		Dropped:        s.dropped.Load(),
		AssemblyErrors: s.assemblyErrors.Load(),
		DecodeErrors:   s.decodeErrors.Load(),
		RecordErrors:   s.recordErrors.Load(),
		Missed:         s.missed.Load(),
		Pending:        s.pending.Load(),
	}
	if dec := s.Decoder(); dec != nil {
		st.Personality = dec.Name()
		st.Capabilities = personality.Capabilities(dec)
	}
	return st
}

// Quit stops recording, closes the realtime store and deregisters. Run returns afterwards.
func (s *Session) Quit() {
	s.quitOnce.Do(func() {
		s.state.Store(int32(Stopping))
		if err := s.StopWriting(); err != nil {
			log.Warning("%s %s", s.name, err)
		}
		s.mu.Lock()
		rt := s.realtime
		s.realtime = nil
		s.mu.Unlock()
		if rt != nil {
			if err := rt.Close(); err != nil {
				log.Warning("%s %s", s.name, err)
			}
		}
		if s.registered {
			if err := s.registry.Deregister(s.id, os.Getpid()); err != nil {
				log.Warning("%s could not deregister: %s", s.name, err)
			}
		}
		close(s.quit)
		s.state.Store(int32(Stopped))
		log.Info("%s stopped", s.name)
	})
}
