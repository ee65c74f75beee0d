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
	"bytes"
	"testing"

	"github.com/google/gopacket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataPacketFields(t *testing.T) {
	datagram := []byte{
		'S', 0x01, 0x01, 0x02, // type subtype bufferIndex bufferCount
		0x01, 0x00, // byteOffset 256
		0x04, 0x00, // bufferDepth 1024
		0x00, 0x00, 0x00, 0x05, // sequenceNumber
		0xde, 0xad, 0xbe, 0xef, // masterCounter
		0x00, 0x07, // loadIndicator
		0x12, 0x34, // extra18
		0x01, 0x02, 0x03, 0x04, // extra20
		0xaa, 0xbb,
	}

	p, err := DecodeDataPacket(datagram)
	require.NoError(t, err)

	assert.Equal(t, "S", p.TypeCode())
	assert.Equal(t, uint8(1), p.Subtype)
	assert.Equal(t, uint8(1), p.BufferIndex)
	assert.Equal(t, uint8(2), p.BufferCount)
	assert.Equal(t, uint16(256), p.ByteOffset)
	assert.Equal(t, uint16(1024), p.BufferDepth)
	assert.Equal(t, uint32(5), p.SequenceNumber)
	assert.Equal(t, uint32(0xdeadbeef), p.MasterCounter)
	assert.Equal(t, uint16(7), p.LoadIndicator)
	assert.Equal(t, uint16(0x1234), p.Extra18)
	assert.Equal(t, uint32(0x01020304), p.Extra20)
	assert.Equal(t, []byte{0xaa, 0xbb}, p.Payload)
}

func TestDecodeDataPacketShort(t *testing.T) {
	_, err := DecodeDataPacket(make([]byte, DataHeaderLength-1))
	assert.Equal(t, ErrMalformedPacket{What: "data", Length: 23}, err)

	p, err := DecodeDataPacket(make([]byte, DataHeaderLength))
	require.NoError(t, err)
	assert.Empty(t, p.Payload)
}

func TestSerializeDataPacket(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5a}, 1024)
	in := &DataPacket{
		DataHeader: DataHeader{Type: 'A', BufferIndex: 1, BufferCount: 2, ByteOffset: 512, BufferDepth: 2048, SequenceNumber: 99},
		Payload:    payload,
	}
	datagram, err := SerializeDataPacket(in)
	require.NoError(t, err)
	require.Len(t, datagram, DataHeaderLength+len(payload))

	packet := gopacket.NewPacket(datagram, IbobDataLayerType, gopacket.Default)
	require.Nil(t, packet.ErrorLayer())
	l := packet.Layer(IbobDataLayerType).(*IbobDataLayer)
	assert.Equal(t, in.DataHeader, l.DataHeader)
	assert.Equal(t, payload, l.LayerPayload())
}
