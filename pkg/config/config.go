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

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Device describes one board and the decoder to assign on start
type Device struct {
	ID          int     `yaml:"id"`
	Personality string  `yaml:"personality"`
	AdcClock    float64 `yaml:"adcClock,omitempty"`
}

type NetworkConfig struct {
	Network       string `yaml:"network"`
	AddressOffset int    `yaml:"addressOffset"`
	DataBasePort  int    `yaml:"dataBasePort"`
	ControlPort   int    `yaml:"controlPort"`
	ReceiveBuffer int    `yaml:"receiveBuffer"`
}

type ApiConfig struct {
	Address     string `yaml:"address"`
	BasePort    int    `yaml:"basePort"`
	ManagerPort int    `yaml:"managerPort"`
}

type ControlConfig struct {
	// Overall budget of one control call, seconds
	Budget float64 `yaml:"budget"`
	// Wait for a response to one attempt, seconds
	AttemptTimeout float64 `yaml:"attemptTimeout"`
	ReuseRequestID bool    `yaml:"reuseRequestID"`
}

type StoreConfig struct {
	RealtimeDir  string `yaml:"realtimeDir"`
	StateDir     string `yaml:"stateDir"`
	MaxPending   int    `yaml:"maxPending"`
	RealtimeRows int    `yaml:"realtimeRows"`
}

type Config struct {
	LogLevel       string `yaml:"logLevel"`
	*NetworkConfig `yaml:"network"`
	*ApiConfig     `yaml:"api"`
	*ControlConfig `yaml:"control"`
	*StoreConfig   `yaml:"store"`
	Devices        []*Device `yaml:"devices"`
	filepath       string
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.filepath)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	return ioutil.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file if it exists, keeping defaults otherwise
func (c *Config) Load() error {
	if _, err := os.Stat(c.filepath); os.IsNotExist(err) {
		return nil
	}
	return c.LoadConfig()
}

func (c *Config) LoadConfig() error {
	data, err := ioutil.ReadFile(c.filepath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

// BoardAddress returns the IP of a board
func (c *Config) BoardAddress(id int) string {
	return fmt.Sprintf("%s%d", c.Network, id+c.AddressOffset)
}

// DataPort is the host port a board streams its fragments to
func (c *Config) DataPort(id int) int {
	return c.DataBasePort + id + c.AddressOffset
}

func (c *Config) ControlAddress(id int) string {
	return fmt.Sprintf("%s:%d", c.BoardAddress(id), c.ControlPort)
}

func (c *Config) ApiPort(id int) int {
	return c.BasePort + id
}

func (c *Config) SessionApiAddress(id int) string {
	return fmt.Sprintf("%s:%d", c.ApiConfig.Address, c.ApiPort(id))
}

func (c *Config) ManagerApiAddress() string {
	return fmt.Sprintf("%s:%d", c.ApiConfig.Address, c.ManagerPort)
}

func (c *Config) RealtimePath(id int) string {
	return filepath.Join(c.RealtimeDir, fmt.Sprintf("rt%d.db", id))
}

func (c *Config) RegStatePath(id int) string {
	return filepath.Join(c.StateDir, fmt.Sprintf("ibob%d.db", id))
}

func (c *Config) RegistryPath() string {
	return filepath.Join(c.StateDir, "registry.db")
}

func (c *Config) ControlBudget() time.Duration {
	return seconds(c.Budget)
}

func (c *Config) ControlAttemptTimeout() time.Duration {
	return seconds(c.AttemptTimeout)
}

func (c *Config) Device(id int) (*Device, error) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrDeviceNotFound{ID: id}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, DefaultStateDir)
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		NetworkConfig: &NetworkConfig{
			Network:       DefaultNetwork,
			AddressOffset: DefaultAddressOffset,
			DataBasePort:  DefaultDataBasePort,
			ControlPort:   DefaultControlPort,
			ReceiveBuffer: DefaultReceiveBuffer,
		},
		ApiConfig: &ApiConfig{
			Address:     DefaultApiAddress,
			BasePort:    DefaultApiBasePort,
			ManagerPort: DefaultManagerPort,
		},
		ControlConfig: &ControlConfig{
			Budget:         DefaultControlBudget,
			AttemptTimeout: DefaultAttemptTimeout,
		},
		StoreConfig: &StoreConfig{
			RealtimeDir:  DefaultRealtimeDir,
			StateDir:     defaultStateDir(),
			MaxPending:   DefaultMaxPending,
			RealtimeRows: DefaultRealtimeRows,
		},
		Devices: []*Device{
			{
				ID:          0,
				Personality: DefaultPersonality,
				AdcClock:    DefaultAdcClock,
			},
		},
		filepath: DefaultConfigPath(),
	}
}
