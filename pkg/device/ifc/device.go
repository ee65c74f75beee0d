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

type Device interface {
	SendCommand(command string) (string, error)
	WriteRegister(name string, value uint32) error
	ReadRegister(name string) (uint32, error)
	Registers() (map[string]uint32, error)

	AdcReset(interleave bool) error
	StartUDP(ip string, mode int, portOffset int) error
	EndUDP() error
	RequestAdcSnapshot() error

	GetName() string
	GetID() int
}
