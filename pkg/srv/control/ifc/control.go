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

package ifc

// Channel carries text commands to one board and returns the assembled response
type Channel interface {
	Send(message string) ([]byte, error)
	Close() error
}

// State caches the last known register values of boards
type State interface {
	SetReg(device, name string, value uint32) error
	GetReg(device, name string) (uint32, error)
	GetRegAll(device string) (map[string]uint32, error)
	Close() error
}
