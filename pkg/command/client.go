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

package command

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/srv/session"
)

// check turns a non 200 response into ErrApi
func check(r *req.Resp, err error) (*req.Resp, error) {
	if err != nil {
		return nil, err
	}
	if r.Response().StatusCode != http.StatusOK {
		msg, _ := r.ToString()
		return nil, ErrApi{
			Url:     r.Request().URL.String(),
			Status:  r.Response().Status,
			Message: msg,
		}
	}
	return r, nil
}

// SessionClient talks to the API of one session process
type SessionClient struct {
	ApiPrefix string
}

func NewSessionClient(address string) *SessionClient {
	return &SessionClient{
		ApiPrefix: fmt.Sprintf("http://%s/api", address),
	}
}

// NewSessionClientForDevice addresses the session of board id as configured
func NewSessionClientForDevice(cfg *config.Config, id int) *SessionClient {
	return NewSessionClient(cfg.SessionApiAddress(id))
}

func (c *SessionClient) url(path string) string {
	return c.ApiPrefix + path
}

// Status ...
func (c *SessionClient) Status() (*session.Status, error) {
	r, err := check(req.Get(c.url("/status")))
	if err != nil {
		return nil, err
	}
	st := &session.Status{}
	if err = r.ToJSON(st); err != nil {
		return nil, err
	}
	return st, nil
}

// Info returns the short status line
func (c *SessionClient) Info() (string, error) {
	r, err := check(req.Get(c.url("/info")))
	if err != nil {
		return "", err
	}
	return r.ToString()
}

// RecordStart asks the session to open an archive at path on its host
func (c *SessionClient) RecordStart(path string) error {
	_, err := check(req.Post(c.url("/record/start"), req.BodyJSON(&session.RecordRequest{Path: path})))
	return err
}

func (c *SessionClient) RecordStop() error {
	_, err := check(req.Post(c.url("/record/stop")))
	return err
}

func (c *SessionClient) Personality() (*session.PersonalityInfo, error) {
	r, err := check(req.Get(c.url("/personality")))
	if err != nil {
		return nil, err
	}
	info := &session.PersonalityInfo{}
	if err = r.ToJSON(info); err != nil {
		return nil, err
	}
	return info, nil
}

func (c *SessionClient) SetPersonality(name string, adcClock float64) error {
	p := &session.PersonalityRequest{Name: name, AdcClock: adcClock}
	_, err := check(req.Post(c.url("/personality"), req.BodyJSON(p)))
	return err
}

func (c *SessionClient) ClearPersonality() error {
	_, err := check(req.Delete(c.url("/personality")))
	return err
}

func (c *SessionClient) Comment(user, comment string) error {
	_, err := check(req.Post(c.url("/comment"), req.BodyJSON(&session.CommentRequest{User: user, Comment: comment})))
	return err
}

// SpecInfo appends a row to the info tables
func (c *SessionClient) SpecInfo(row map[string]interface{}) error {
	_, err := check(req.Post(c.url("/spec_info"), req.BodyJSON(row)))
	return err
}

// RegRead reads a register from the board, value is hexadecimal
func (c *SessionClient) RegRead(name string) (string, error) {
	parts := strings.Split(name, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	r, err := check(req.Get(c.url("/reg/" + strings.Join(parts, "/"))))
	if err != nil {
		return "", err
	}
	reg := &session.RegHex{}
	if err = r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll returns cached register values by name
func (c *SessionClient) RegReadAll() (map[string]string, error) {
	r, err := check(req.Get(c.url("/reg")))
	if err != nil {
		return nil, err
	}
	var regs []*session.RegHex
	if err = r.ToJSON(&regs); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	for _, reg := range regs {
		result[reg.Name] = reg.Value
	}
	return result, nil
}

// RegWrite writes a register, value may be decimal or 0x prefixed hexadecimal
func (c *SessionClient) RegWrite(name, value string) error {
	_, err := check(req.Post(c.url("/reg"), req.BodyJSON(&session.RegHex{Name: name, Value: value})))
	return err
}

func (c *SessionClient) SetIntegrationTime(seconds float64) error {
	_, err := check(req.Post(c.url("/integration"), req.BodyJSON(&session.IntegrationRequest{Seconds: seconds})))
	return err
}

func (c *SessionClient) SetTvg(value uint32) error {
	_, err := check(req.Post(c.url("/tvg"), req.BodyJSON(&session.TvgRequest{Value: value})))
	return err
}

func (c *SessionClient) Restart() error {
	_, err := check(req.Post(c.url("/restart")))
	return err
}

func (c *SessionClient) Snapshot() error {
	_, err := check(req.Post(c.url("/snapshot")))
	return err
}

func (c *SessionClient) Quit() error {
	_, err := check(req.Post(c.url("/quit")))
	return err
}
