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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewControlRequest(t *testing.T) {
	data, err := NewControlRequest(ControlRequestIDSentinel|0x10, "regread period")
	require.NoError(t, err)

	assert.Equal(t, []byte{0xff, 0x00, 0x00, 0x10, 0, 0, 0, 0}, data[:ControlHeaderLength])
	assert.Equal(t, "regread period\n", string(data[ControlHeaderLength:]))
}

func TestDecodeControl(t *testing.T) {
	data, err := SerializeControl(ControlHeader{RequestID: 0xff000001, Sequence: 3, MessageType: ControlMessageFinal}, []byte("0x0000abcd\r"))
	require.NoError(t, err)

	h, payload, err := DecodeControl(data)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xff000001), h.RequestID)
	assert.Equal(t, uint16(3), h.Sequence)
	assert.True(t, h.Final())
	assert.Equal(t, "0x0000abcd\r", string(payload))
}

func TestDecodeControlHeaderOnly(t *testing.T) {
	data, err := SerializeControl(ControlHeader{RequestID: 0xff000002}, nil)
	require.NoError(t, err)

	h, payload, err := DecodeControl(data)
	require.NoError(t, err)
	assert.False(t, h.Final())
	assert.Empty(t, payload)
}

func TestDecodeControlShort(t *testing.T) {
	_, _, err := DecodeControl([]byte{0xff, 0x00})
	assert.Equal(t, ErrMalformedPacket{What: "control", Length: 2}, err)
}
