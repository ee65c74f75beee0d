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
	"fmt"
)

// ErrAlreadyRunning returned when a session process for the board is alive
type ErrAlreadyRunning struct {
	ID  int
	Pid int
}

func (e ErrAlreadyRunning) Error() string {
	return fmt.Sprintf("Session ibob%d already running with pid %d", e.ID, e.Pid)
}

// ErrNotRunning returned when the manager did not start a session for the board
type ErrNotRunning struct {
	ID int
}

func (e ErrNotRunning) Error() string {
	return fmt.Sprintf("Session ibob%d is not running", e.ID)
}
