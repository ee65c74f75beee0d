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
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/personality"
	"jinr.ru/greenlab/go-ibob/pkg/srv/manager"
	"jinr.ru/greenlab/go-ibob/pkg/srv/registry"
	"jinr.ru/greenlab/go-ibob/pkg/srv/session"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.NewDefaultConfig()
	dir := t.TempDir()
	cfg.RealtimeDir = dir
	cfg.StateDir = filepath.Join(dir, "state")
	cfg.SetPath(filepath.Join(dir, "config"))
	cfg.Devices = nil
	return cfg
}

// newSessionServer serves a session without a board behind it
func newSessionServer(t *testing.T) (*SessionClient, *session.Session) {
	cfg := testConfig(t)
	s, err := session.NewSession(cfg, 2)
	require.NoError(t, err)
	t.Cleanup(s.Quit)
	api, err := session.NewApiServer(cfg.SessionApiAddress(2), s)
	require.NoError(t, err)
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return NewSessionClient(strings.TrimPrefix(ts.URL, "http://")), s
}

func TestSessionClient(t *testing.T) {
	c, s := newSessionServer(t)

	st, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, "ibob2", st.Name)
	assert.Empty(t, st.Personality)

	_, err = c.Personality()
	assert.ErrorAs(t, err, &ErrApi{})

	require.NoError(t, c.SetPersonality(personality.DummyName, 0))
	err = c.SetPersonality(personality.DummyName, 0)
	apiErr := ErrApi{}
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Status, "409")

	info, err := c.Personality()
	require.NoError(t, err)
	assert.Equal(t, personality.DummyName, info.Name)

	path := filepath.Join(t.TempDir(), "run.db")
	require.NoError(t, c.RecordStart(path))
	line, err := c.Info()
	require.NoError(t, err)
	assert.Equal(t, "W 0", line)
	assert.True(t, s.Writing())

	require.NoError(t, c.Comment("operator", "calibration source on"))
	require.NoError(t, c.SpecInfo(map[string]interface{}{"Source": "noise"}))
	require.NoError(t, c.RecordStop())
	assert.False(t, s.Writing())

	archive, err := store.OpenContainer(path)
	require.NoError(t, err)
	defer archive.Close()
	comments, err := archive.Comments()
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "calibration source on", comments[0]["Comment"])

	require.NoError(t, c.ClearPersonality())
	_, err = c.Personality()
	assert.Error(t, err)
}

func TestSessionClientNoBoard(t *testing.T) {
	c, _ := newSessionServer(t)

	_, err := c.RegRead("cfgspec/vacc/acc_len")
	apiErr := ErrApi{}
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Status, "502")
	assert.Contains(t, apiErr.Url, "/reg/cfgspec/vacc/acc_len")

	err = c.RegWrite("snap/ctrl", "not a number")
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Status, "400")
}

type recordingSession struct {
	path string
	quit bool
}

func (r *recordingSession) RecordStart(path string) error { r.path = path; return nil }
func (r *recordingSession) RecordStop() error             { r.path = ""; return nil }
func (r *recordingSession) Quit() error                   { r.quit = true; return nil }

func TestManagerClient(t *testing.T) {
	cfg := testConfig(t)
	sessions := map[string]*recordingSession{}
	m := manager.NewManager(cfg, "", func(address string) manager.SessionClient {
		if sessions[address] == nil {
			sessions[address] = &recordingSession{}
		}
		return sessions[address]
	})
	reg := registry.NewRegistry(cfg.RegistryPath())
	require.NoError(t, reg.Register(&registry.Record{ID: 1, Pid: 11, ApiAddress: "127.0.0.1:9001"}))
	require.NoError(t, reg.Register(&registry.Record{ID: 3, Pid: 13, ApiAddress: "127.0.0.1:9003"}))

	ts := httptest.NewServer(manager.NewApiServer(m).Handler())
	defer ts.Close()
	c := &ManagerClient{ApiPrefix: ts.URL + "/api"}

	records, err := c.Sessions()
	require.NoError(t, err)
	ids := []int{}
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	if diff := cmp.Diff([]int{1, 3}, ids); diff != "" {
		t.Errorf("sessions mismatch (-want +got):\n%s", diff)
	}

	dir := filepath.Join(t.TempDir(), "obs")
	require.NoError(t, c.RecordStart([]int{3}, dir))
	assert.Equal(t, manager.RecordPath(dir, 3), sessions["127.0.0.1:9003"].path)
	assert.Nil(t, sessions["127.0.0.1:9001"])

	require.NoError(t, c.RecordStop(nil))
	assert.Empty(t, sessions["127.0.0.1:9003"].path)

	err = c.Stop(1)
	apiErr := ErrApi{}
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Status, "404")
}
