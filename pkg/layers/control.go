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

package layers

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

const (
	// IbobControlLayerNum identifies the layer
	IbobControlLayerNum = 1991
	// ControlHeaderLength is the size of the control header in bytes
	ControlHeaderLength = 8
	// ControlRequestIDSentinel occupies the top byte of every request id
	ControlRequestIDSentinel = 0xFF << 24
	// ControlCounterLimit is the highest counter value before it wraps to 0
	ControlCounterLimit = 0xFFFF00
)

type ControlMessageType uint8

const (
	ControlMessagePartial ControlMessageType = 0
	ControlMessageFinal   ControlMessageType = 2
)

// ControlHeader frames requests to a board and its responses
type ControlHeader struct {
	RequestID   uint32
	Sequence    uint16
	MessageType ControlMessageType
	Reserved    uint8
}

// IbobControlLayer ...
type IbobControlLayer struct {
	layers.BaseLayer
	ControlHeader
}

var IbobControlLayerType = gopacket.RegisterLayerType(IbobControlLayerNum,
	gopacket.LayerTypeMetadata{Name: "IbobControlLayerType", Decoder: gopacket.DecodeFunc(DecodeIbobControlLayer)})

func (l *IbobControlLayer) LayerType() gopacket.LayerType {
	return IbobControlLayerType
}

func (l *IbobControlLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

// Final tells whether this fragment closes the response
func (h *ControlHeader) Final() bool {
	return h.MessageType == ControlMessageFinal
}

func (h *ControlHeader) Serialize(buf []byte) {
	binary.BigEndian.PutUint32(buf[0:4], h.RequestID)
	binary.BigEndian.PutUint16(buf[4:6], h.Sequence)
	buf[6] = uint8(h.MessageType)
	buf[7] = h.Reserved
}

func (l *IbobControlLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(ControlHeaderLength)
	if err != nil {
		return err
	}
	l.ControlHeader.Serialize(headerBytes)
	return nil
}

func (l *IbobControlLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < ControlHeaderLength {
		df.SetTruncated()
		return ErrMalformedPacket{What: "control", Length: len(data)}
	}
	l.RequestID = binary.BigEndian.Uint32(data[0:4])
	l.Sequence = binary.BigEndian.Uint16(data[4:6])
	l.MessageType = ControlMessageType(data[6])
	l.Reserved = data[7]
	l.BaseLayer = layers.BaseLayer{
		Contents: data[:ControlHeaderLength],
		Payload:  data[ControlHeaderLength:],
	}
	return nil
}

func DecodeIbobControlLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &IbobControlLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return p.NextDecoder(l.NextLayerType())
}

// NewControlRequest frames a text command: header, command, newline
func NewControlRequest(requestID uint32, command string) ([]byte, error) {
	return SerializeControl(ControlHeader{RequestID: requestID}, []byte(command+"\n"))
}

func SerializeControl(h ControlHeader, payload []byte) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, &IbobControlLayer{ControlHeader: h}, gopacket.Payload(payload))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeControl parses a control datagram into its header and payload
func DecodeControl(data []byte) (*ControlHeader, []byte, error) {
	packet := gopacket.NewPacket(data, IbobControlLayerType, gopacket.NoCopy)
	if errLayer := packet.ErrorLayer(); errLayer != nil {
		return nil, nil, errLayer.Error()
	}
	l, ok := packet.Layer(IbobControlLayerType).(*IbobControlLayer)
	if !ok {
		return nil, nil, ErrMalformedPacket{What: "control", Length: len(data)}
	}
	return &l.ControlHeader, l.LayerPayload(), nil
}
