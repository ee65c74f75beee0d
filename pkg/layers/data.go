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
	// IbobDataLayerNum identifies the layer
	IbobDataLayerNum = 1990
	// DataHeaderLength is the size of the fragment header in bytes
	DataHeaderLength = 24
)

// DataHeader is the big-endian header every data fragment starts with.
// Offsets and depths count 4-byte words.
type DataHeader struct {
	Type           uint8
	Subtype        uint8
	BufferIndex    uint8
	BufferCount    uint8
	ByteOffset     uint16
	BufferDepth    uint16
	SequenceNumber uint32
	MasterCounter  uint32
	LoadIndicator  uint16
	Extra18        uint16
	Extra20        uint32
}

// IbobDataLayer ...
type IbobDataLayer struct {
	layers.BaseLayer
	DataHeader
}

var IbobDataLayerType = gopacket.RegisterLayerType(IbobDataLayerNum,
	gopacket.LayerTypeMetadata{Name: "IbobDataLayerType", Decoder: gopacket.DecodeFunc(DecodeIbobDataLayer)})

// LayerType returns the type of the data layer in the layer catalog
func (l *IbobDataLayer) LayerType() gopacket.LayerType {
	return IbobDataLayerType
}

func (l *IbobDataLayer) CanDecode() gopacket.LayerClass {
	return IbobDataLayerType
}

func (l *IbobDataLayer) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypePayload
}

func (h *DataHeader) Serialize(buf []byte) {
	buf[0] = h.Type
	buf[1] = h.Subtype
	buf[2] = h.BufferIndex
	buf[3] = h.BufferCount
	binary.BigEndian.PutUint16(buf[4:6], h.ByteOffset)
	binary.BigEndian.PutUint16(buf[6:8], h.BufferDepth)
	binary.BigEndian.PutUint32(buf[8:12], h.SequenceNumber)
	binary.BigEndian.PutUint32(buf[12:16], h.MasterCounter)
	binary.BigEndian.PutUint16(buf[16:18], h.LoadIndicator)
	binary.BigEndian.PutUint16(buf[18:20], h.Extra18)
	binary.BigEndian.PutUint32(buf[20:24], h.Extra20)
}

// SerializeTo prepends the header to whatever payload is already in the buffer
func (l *IbobDataLayer) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	headerBytes, err := b.PrependBytes(DataHeaderLength)
	if err != nil {
		return err
	}
	l.DataHeader.Serialize(headerBytes)
	return nil
}

func (l *IbobDataLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if len(data) < DataHeaderLength {
		df.SetTruncated()
		return ErrMalformedPacket{What: "data", Length: len(data)}
	}
	l.Type = data[0]
	l.Subtype = data[1]
	l.BufferIndex = data[2]
	l.BufferCount = data[3]
	l.ByteOffset = binary.BigEndian.Uint16(data[4:6])
	l.BufferDepth = binary.BigEndian.Uint16(data[6:8])
	l.SequenceNumber = binary.BigEndian.Uint32(data[8:12])
	l.MasterCounter = binary.BigEndian.Uint32(data[12:16])
	l.LoadIndicator = binary.BigEndian.Uint16(data[16:18])
	l.Extra18 = binary.BigEndian.Uint16(data[18:20])
	l.Extra20 = binary.BigEndian.Uint32(data[20:24])
	l.BaseLayer = layers.BaseLayer{
		Contents: data[:DataHeaderLength],
		Payload:  data[DataHeaderLength:],
	}
	return nil
}

func DecodeIbobDataLayer(data []byte, p gopacket.PacketBuilder) error {
	l := &IbobDataLayer{}
	err := l.DecodeFromBytes(data, p)
	if err != nil {
		return err
	}
	p.AddLayer(l)
	return p.NextDecoder(l.NextLayerType())
}

// DataPacket is one decoded fragment of a measurement
type DataPacket struct {
	DataHeader
	Payload []byte
}

// TypeCode is the single character measurement type, e.g. "S"
func (p *DataPacket) TypeCode() string {
	return string(rune(p.Type))
}

// DecodeDataPacket parses a raw datagram. The payload aliases the datagram.
func DecodeDataPacket(data []byte) (*DataPacket, error) {
	l := &IbobDataLayer{}
	if err := l.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
		return nil, err
	}
	return &DataPacket{
		DataHeader: l.DataHeader,
		Payload:    l.Payload,
	}, nil
}

// SerializeDataPacket builds the datagram a board would send
func SerializeDataPacket(p *DataPacket) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{}
	err := gopacket.SerializeLayers(buf, opts, &IbobDataLayer{DataHeader: p.DataHeader}, gopacket.Payload(p.Payload))
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
