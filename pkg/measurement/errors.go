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

package measurement

import (
	"fmt"
)

// ErrAssemblyOverflow returned when a fragment points outside the allocated buffers
type ErrAssemblyOverflow struct {
	Key         Key
	BufferIndex int
	Offset      int
	Length      int
}

func (e ErrAssemblyOverflow) Error() string {
	return fmt.Sprintf("Fragment out of bounds: %s buffer: %d offset: %d length: %d",
		e.Key, e.BufferIndex, e.Offset, e.Length)
}

// ErrLayoutMismatch returned when a fragment disagrees with the layout
// taken from the first fragment of the same measurement
type ErrLayoutMismatch struct {
	Key  Key
	What string
	Want int
	Got  int
}

func (e ErrLayoutMismatch) Error() string {
	return fmt.Sprintf("Fragment layout mismatch: %s %s: expected %d got %d", e.Key, e.What, e.Want, e.Got)
}
