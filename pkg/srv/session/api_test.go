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

package session

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ibob/pkg/personality"
)

func newTestApi(t *testing.T, s *Session) *httptest.Server {
	ts := httptest.NewServer(s.api.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestApiPersonalityAndStatus(t *testing.T) {
	s := newTestSession(t, WithDevice(newFakeDevice()))
	ts := newTestApi(t, s)

	resp := post(t, ts.URL+"/api/personality", &PersonalityRequest{Name: personality.TwoPolRealName, AdcClock: 1024})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, ts.URL+"/api/personality", &PersonalityRequest{Name: personality.OnePolRealName})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = post(t, ts.URL+"/api/personality", &PersonalityRequest{Name: "NoSuchDesign"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	feed(t, s, 1)

	resp, body := get(t, ts.URL+"/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := &Status{}
	require.NoError(t, json.Unmarshal(body, st))
	assert.Equal(t, uint64(8), st.Packets)
	assert.Equal(t, personality.TwoPolRealName, st.Personality)
	assert.Contains(t, st.Capabilities, "integration")

	_, body = get(t, ts.URL+"/api/info")
	assert.Equal(t, "8", string(body))

	resp, body = get(t, ts.URL+"/api/personality")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := &PersonalityInfo{}
	require.NoError(t, json.Unmarshal(body, info))
	assert.Len(t, info.Frequencies, personality.TwoPolChannels)

	resp, body = get(t, ts.URL+"/api/latest/SpectralPower")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"II"`)
	resp, _ = get(t, ts.URL+"/api/latest/ADCSnapshot")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/personality", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/personality")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApiRegisters(t *testing.T) {
	dev := newFakeDevice()
	s := newTestSession(t, WithDevice(dev))
	ts := newTestApi(t, s)

	resp := post(t, ts.URL+"/api/reg", &RegHex{Name: "cfgspec/vacc/acc_len", Value: "0x27"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, ts.URL+"/api/reg", &RegHex{Name: "tvg", Value: "zz"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := get(t, ts.URL+"/api/reg/cfgspec/vacc/acc_len")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reg := &RegHex{}
	require.NoError(t, json.Unmarshal(body, reg))
	assert.Equal(t, "0x00000027", reg.Value)

	resp, body = get(t, ts.URL+"/api/reg")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var regs []*RegHex
	require.NoError(t, json.Unmarshal(body, &regs))
	assert.Len(t, regs, 1)
}

func TestApiRecording(t *testing.T) {
	s := newTestSession(t)
	ts := newTestApi(t, s)
	path := t.TempDir() + "/ibob0.db"

	resp := post(t, ts.URL+"/api/record/start", &RecordRequest{Path: path})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = post(t, ts.URL+"/api/comment", &CommentRequest{User: "observer", Comment: "no archive"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, s.SetPersonality(personality.OnePolRealName, 0))
	resp = post(t, ts.URL+"/api/record/start", &RecordRequest{Path: path})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, ts.URL+"/api/record/start", &RecordRequest{Path: path})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = post(t, ts.URL+"/api/comment", &CommentRequest{User: "observer", Comment: "ok"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = post(t, ts.URL+"/api/spec_info", map[string]interface{}{"Source": "Sun"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := get(t, ts.URL+"/api/info")
	assert.Equal(t, "W 0", string(body))
	resp = post(t, ts.URL+"/api/record/stop", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, s.Writing())
}

func TestApiControlErrors(t *testing.T) {
	s := newTestSession(t)
	ts := newTestApi(t, s)

	resp := post(t, ts.URL+"/api/integration", &IntegrationRequest{Seconds: 0.04})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, s.SetPersonality(personality.DummyName, 0))
	resp = post(t, ts.URL+"/api/integration", &IntegrationRequest{Seconds: 0.04})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = post(t, ts.URL+"/api/snapshot", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/reg/tvg")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestApiDocsAndMetrics(t *testing.T) {
	s := newTestSession(t)
	ts := newTestApi(t, s)
	s.HandleDatagram([]byte{1})

	resp, body := get(t, ts.URL+"/swagger.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"swagger": "2.0"`)

	resp, body = get(t, ts.URL+"/docs")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "redoc")

	resp, body = get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ibob_packets_malformed_total{device="ibob0"} 1`)
}

func TestApiQuit(t *testing.T) {
	s := newTestSession(t)
	ts := newTestApi(t, s)
	resp := post(t, ts.URL+"/api/quit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Eventually(t, func() bool { return s.State() == Stopped }, time.Second, 10*time.Millisecond)
}
