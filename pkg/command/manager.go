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

	"github.com/imroc/req"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/srv/manager"
	"jinr.ru/greenlab/go-ibob/pkg/srv/registry"
)

// ManagerClient talks to the process manager API
type ManagerClient struct {
	ApiPrefix string
}

func NewManagerClient(cfg *config.Config) *ManagerClient {
	return &ManagerClient{
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ManagerApiAddress()),
	}
}

func (c *ManagerClient) Start(id int) error {
	_, err := check(req.Post(fmt.Sprintf("%s/start/%d", c.ApiPrefix, id)))
	return err
}

func (c *ManagerClient) Stop(id int) error {
	_, err := check(req.Post(fmt.Sprintf("%s/stop/%d", c.ApiPrefix, id)))
	return err
}

// RecordStart starts recording on the given boards, all registered ones when ids is empty
func (c *ManagerClient) RecordStart(ids []int, dir string) error {
	body := &manager.StartRecordRequest{IDs: ids, Path: dir}
	_, err := check(req.Post(c.ApiPrefix+"/record/start", req.BodyJSON(body)))
	return err
}

func (c *ManagerClient) RecordStop(ids []int) error {
	body := &manager.StopRecordRequest{IDs: ids}
	_, err := check(req.Post(c.ApiPrefix+"/record/stop", req.BodyJSON(body)))
	return err
}

// Sessions lists the registered sessions
func (c *ManagerClient) Sessions() ([]*registry.Record, error) {
	r, err := check(req.Get(c.ApiPrefix + "/sessions"))
	if err != nil {
		return nil, err
	}
	var records []*registry.Record
	if err = r.ToJSON(&records); err != nil {
		return nil, err
	}
	return records, nil
}
