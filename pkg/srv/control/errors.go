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
	"fmt"
	"time"
)

// ErrControlTimeout returned when no final response arrived within the budget
type ErrControlTimeout struct {
	Device   string
	Command  string
	Attempts int
	Elapsed  time.Duration
}

func (e ErrControlTimeout) Error() string {
	return fmt.Sprintf("No response from %s to '%s' after %d attempts in %s",
		e.Device, e.Command, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// ErrBucketNotFound returned when the register state has no bucket for a device
type ErrBucketNotFound struct {
	Name string
}

func (e ErrBucketNotFound) Error() string {
	return fmt.Sprintf("Bucket not found: %s", e.Name)
}

// ErrRegNotFound returned when a register was never read or written
type ErrRegNotFound struct {
	Name string
}

func (e ErrRegNotFound) Error() string {
	return fmt.Sprintf("Register not found: %s", e.Name)
}
