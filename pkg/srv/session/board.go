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
	"jinr.ru/greenlab/go-ibob/pkg/personality"
)

func (s *Session) board() error {
	if s.device == nil {
		return ErrNoDevice{Name: s.name}
	}
	return nil
}

func (s *Session) WriteRegister(name string, value uint32) error {
	if err := s.board(); err != nil {
		return err
	}
	return s.device.WriteRegister(name, value)
}

func (s *Session) ReadRegister(name string) (uint32, error) {
	if err := s.board(); err != nil {
		return 0, err
	}
	return s.device.ReadRegister(name)
}

func (s *Session) SendCommand(command string) (string, error) {
	if err := s.board(); err != nil {
		return "", err
	}
	return s.device.SendCommand(command)
}

// Registers returns the cached register values
func (s *Session) Registers() (map[string]uint32, error) {
	if err := s.board(); err != nil {
		return nil, err
	}
	return s.device.Registers()
}

func (s *Session) AdcReset(interleave bool) error {
	if err := s.board(); err != nil {
		return err
	}
	return s.device.AdcReset(interleave)
}

func (s *Session) StartUDP(ip string, mode int, portOffset int) error {
	if err := s.board(); err != nil {
		return err
	}
	return s.device.StartUDP(ip, mode, portOffset)
}

func (s *Session) EndUDP() error {
	if err := s.board(); err != nil {
		return err
	}
	return s.device.EndUDP()
}

func (s *Session) notSupported(dec personality.Decoder, op string) error {
	return ErrNotSupported{Personality: dec.Name(), Operation: op}
}

// SetIntegrationTime forwards to the decoder if it has a programmable accumulation length
func (s *Session) SetIntegrationTime(seconds float64) error {
	dec := s.Decoder()
	if dec == nil {
		return ErrNoPersonality{}
	}
	it, ok := dec.(personality.IntegrationTimer)
	if !ok {
		return s.notSupported(dec, "integration")
	}
	return it.SetIntegrationTime(seconds)
}

func (s *Session) SetTvg(value uint32) error {
	dec := s.Decoder()
	if dec == nil {
		return ErrNoPersonality{}
	}
	t, ok := dec.(personality.TvgSetter)
	if !ok {
		return s.notSupported(dec, "tvg")
	}
	return t.SetTvg(value)
}

func (s *Session) Restart() error {
	dec := s.Decoder()
	if dec == nil {
		return ErrNoPersonality{}
	}
	r, ok := dec.(personality.Restarter)
	if !ok {
		return s.notSupported(dec, "restart")
	}
	return r.Restart()
}

func (s *Session) RequestAdcSnapshot() error {
	dec := s.Decoder()
	if dec == nil {
		return ErrNoPersonality{}
	}
	r, ok := dec.(personality.SnapshotRequester)
	if !ok {
		return s.notSupported(dec, "snapshot")
	}
	return r.RequestAdcSnapshot()
}
