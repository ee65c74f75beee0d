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

package personality

import (
	"fmt"
)

// ErrUnknownPersonality returned when no decoder is registered under the name
type ErrUnknownPersonality struct {
	Name string
}

func (e ErrUnknownPersonality) Error() string {
	return fmt.Sprintf("Unknown personality: %s", e.Name)
}

// ErrUnknownType returned for a measurement type code the decoder does not handle
type ErrUnknownType struct {
	Personality string
	Code        string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("%s does not decode measurement type '%s'", e.Personality, e.Code)
}

// ErrUnexpectedLayout returned when a measurement has fewer buffers or bytes than its type needs
type ErrUnexpectedLayout struct {
	Personality string
	Code        string
	Want        string
	Got         string
}

func (e ErrUnexpectedLayout) Error() string {
	return fmt.Sprintf("%s measurement '%s' layout: want %s, got %s", e.Personality, e.Code, e.Want, e.Got)
}

// ErrNoHost returned by control operations of a decoder created without a board
type ErrNoHost struct {
	Personality string
}

func (e ErrNoHost) Error() string {
	return fmt.Sprintf("%s: no connection to iBOB available", e.Personality)
}
