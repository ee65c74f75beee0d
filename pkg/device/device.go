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
	"net"
	"strconv"
	"strings"

	deviceifc "jinr.ru/greenlab/go-ibob/pkg/device/ifc"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/srv/control/ifc"
)

const (
	// RegWriteAck is the whole response to a successful regwrite
	RegWriteAck = "\r"
	// regValueDigits is the number of hex digits following 0x in a regread response
	regValueDigits = 8
)

// Device issues text commands to one iBOB over its control channel
type Device struct {
	Name string
	ID   int
	// DataPort is the host port the board is told to stream to
	DataPort int
	ctrl     ifc.Channel
	state    ifc.State
}

var _ deviceifc.Device = &Device{}

// NewDevice ...
func NewDevice(id, dataPort int, ctrl ifc.Channel, state ifc.State) *Device {
	return &Device{
		Name:     fmt.Sprintf("ibob%d", id),
		ID:       id,
		DataPort: dataPort,
		ctrl:     ctrl,
		state:    state,
	}
}

func (d *Device) GetName() string {
	return d.Name
}

func (d *Device) GetID() int {
	return d.ID
}

// SendCommand sends an arbitrary command and returns the raw response
func (d *Device) SendCommand(command string) (string, error) {
	resp, err := d.ctrl.Send(command)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// WriteRegister ...
func (d *Device) WriteRegister(name string, value uint32) error {
	command := fmt.Sprintf("regwrite %s 0x%x", name, value)
	resp, err := d.SendCommand(command)
	if err != nil {
		return err
	}
	if resp != RegWriteAck {
		return ErrUnexpectedResponse{Command: command, Response: resp}
	}
	d.cache(name, value)
	return nil
}

// ReadRegister ...
func (d *Device) ReadRegister(name string) (uint32, error) {
	command := fmt.Sprintf("regread %s", name)
	resp, err := d.SendCommand(command)
	if err != nil {
		return 0, err
	}
	value, err := parseRegValue(resp)
	if err != nil {
		return 0, ErrUnexpectedResponse{Command: command, Response: resp}
	}
	d.cache(name, value)
	return value, nil
}

func parseRegValue(resp string) (uint32, error) {
	i := strings.Index(resp, "0x")
	if i < 0 || len(resp) < i+2+regValueDigits {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(resp[i+2:i+2+regValueDigits], 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func (d *Device) cache(name string, value uint32) {
	if d.state == nil {
		return
	}
	if err := d.state.SetReg(d.Name, name, value); err != nil {
		log.Warning("%s unable to cache register %s: %s", d.Name, name, err)
	}
}

// Registers returns the last known value of every register touched so far
func (d *Device) Registers() (map[string]uint32, error) {
	if d.state == nil {
		return map[string]uint32{}, nil
	}
	return d.state.GetRegAll(d.Name)
}

// AdcReset resets the ADC. Interleaved designs sample only the I input.
func (d *Device) AdcReset(interleave bool) error {
	mode := 0
	if interleave {
		mode = 1
	}
	_, err := d.SendCommand(fmt.Sprintf("adcreset %d 0", mode))
	return err
}

// StartUDP restarts streaming to ip at the board data port shifted by portOffset
func (d *Device) StartUDP(ip string, mode int, portOffset int) error {
	addr := net.ParseIP(ip).To4()
	if addr == nil {
		return ErrBadAddress{Address: ip}
	}
	if err := d.EndUDP(); err != nil {
		return err
	}
	_, err := d.SendCommand(fmt.Sprintf("startudp %d %d %d %d %d %d",
		addr[0], addr[1], addr[2], addr[3], d.DataPort+portOffset, mode))
	return err
}

func (d *Device) EndUDP() error {
	_, err := d.SendCommand("endudp")
	return err
}

// RequestAdcSnapshot makes the board send one ADC snapshot measurement
func (d *Device) RequestAdcSnapshot() error {
	return d.WriteRegister(RegSnapCtrl, SnapshotTrigger)
}
