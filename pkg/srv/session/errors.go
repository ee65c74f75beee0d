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
	"fmt"
)

// ErrPersonalitySet returned when a decoder is already assigned
type ErrPersonalitySet struct {
	Current string
}

func (e ErrPersonalitySet) Error() string {
	return fmt.Sprintf("Personality already set to %s, clear it first", e.Current)
}

// ErrRecording returned for operations not allowed while recording
type ErrRecording struct {
	Path string
}

func (e ErrRecording) Error() string {
	return fmt.Sprintf("Recording in progress to %s", e.Path)
}

// ErrNoPersonality returned for operations that need a decoder
type ErrNoPersonality struct{}

func (e ErrNoPersonality) Error() string {
	return "No personality set"
}

// ErrNotSupported returned when the decoder lacks the requested capability
type ErrNotSupported struct {
	Personality string
	Operation   string
}

func (e ErrNotSupported) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Personality, e.Operation)
}

// ErrNoDevice returned for control operations before the control socket is connected
type ErrNoDevice struct {
	Name string
}

func (e ErrNoDevice) Error() string {
	return fmt.Sprintf("%s: control channel not connected", e.Name)
}
