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

package control

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ibob0.db")
	s, err := NewRegState(path, "ibob0")
	require.NoError(t, err)

	_, err = s.GetReg("ibob0", "tvg")
	assert.ErrorAs(t, err, &ErrRegNotFound{})

	require.NoError(t, s.SetReg("ibob0", "tvg", 1))
	require.NoError(t, s.SetReg("ibob0", "cfgspec/vacc/acc_len", 39))
	require.NoError(t, s.SetReg("ibob0", "tvg", 0))

	v, err := s.GetReg("ibob0", "tvg")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), v)

	all, err := s.GetRegAll("ibob0")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint32{"tvg": 0, "cfgspec/vacc/acc_len": 39}, all)

	assert.ErrorAs(t, s.SetReg("ibob1", "tvg", 1), &ErrBucketNotFound{})
	require.NoError(t, s.Close())

	// values survive reopening
	s, err = NewRegState(path, "ibob0")
	require.NoError(t, err)
	defer s.Close()
	v, err = s.GetReg("ibob0", "cfgspec/vacc/acc_len")
	require.NoError(t, err)
	assert.Equal(t, uint32(39), v)
}
