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

package config

const (
	ConfigDir  = ".go-ibob"
	ConfigFile = "config"

	DefaultLogLevel = "info"
	// Boards live at <network><id + address offset>
	DefaultNetwork       = "192.168.0."
	DefaultAddressOffset = 16
	DefaultDataBasePort  = 59000
	DefaultControlPort   = 7
	// 2^24 bytes
	DefaultReceiveBuffer = 16777216

	DefaultApiAddress  = "127.0.0.1"
	DefaultApiBasePort = 8100
	DefaultManagerPort = 8099

	DefaultRealtimeDir = "/tmp"
	DefaultStateDir    = ".go-ibob/state"

	DefaultMaxPending   = 20
	DefaultRealtimeRows = 1024

	DefaultControlBudget  = 1.0
	DefaultAttemptTimeout = 0.2

	DefaultAdcClock    = 1024.0
	DefaultPersonality = "DummyPersonality"
)
