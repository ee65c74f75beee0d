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

package device

import (
	"fmt"
)

// ErrUnexpectedResponse returned when the board answers with something other than expected
type ErrUnexpectedResponse struct {
	Command  string
	Response string
}

func (e ErrUnexpectedResponse) Error() string {
	return fmt.Sprintf("Incorrect output read after sending command '%s': %q", e.Command, e.Response)
}

// ErrBadAddress returned when the streaming destination is not a dotted IPv4 address
type ErrBadAddress struct {
	Address string
}

func (e ErrBadAddress) Error() string {
	return fmt.Sprintf("Bad IP: %s", e.Address)
}
