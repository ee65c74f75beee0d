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

package srv

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/gopacket"

	"jinr.ru/greenlab/go-ibob/pkg/config"
)

const (
	// MaxDatagramSize is enough for any UDP payload
	MaxDatagramSize = 65536
)

type InPacket struct {
	Data []byte
	gopacket.CaptureInfo
}

type Server struct {
	context.Context
	*config.Config
	*net.UDPAddr
	ChIn chan InPacket
}

// ReadLoop copies datagrams from conn into ChIn until conn is closed or the
// context is done. The read error that ended the loop goes to errChan.
func (s *Server) ReadLoop(conn net.PacketConn, errChan chan<- error) {
	buffer := make([]byte, MaxDatagramSize)
	for {
		length, addr, err := conn.ReadFrom(buffer)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				errChan <- err
			}
			close(s.ChIn)
			return
		}
		data := make([]byte, length)
		copy(data, buffer[:length])
		p := InPacket{
			Data: data,
			CaptureInfo: gopacket.CaptureInfo{
				Length:        length,
				CaptureLength: length,
				Timestamp:     time.Now(),
				AncillaryData: []interface{}{addr},
			},
		}
		select {
		case s.ChIn <- p:
		case <-s.Done():
			close(s.ChIn)
			return
		}
	}
}
