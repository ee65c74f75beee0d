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

// Registers shared by the spectrometer designs
const (
	RegAccLen   = "cfgspec/vacc/acc_len"
	RegPeriod   = "period"
	RegTvg      = "tvg"
	RegCtrl     = "ctrl"
	RegSnapCtrl = "snap/ctrl"
)

const (
	// SnapshotTrigger arms both ADC snapshot brams
	SnapshotTrigger = 7
	// DefaultDestination is the host the board streams to
	DefaultDestination = "192.168.0.2"
	DefaultUDPMode     = 24
)
