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
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"jinr.ru/greenlab/go-ibob/pkg/config"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/srv/manager"
	"jinr.ru/greenlab/go-ibob/pkg/srv/registry"
	"jinr.ru/greenlab/go-ibob/pkg/srv/session"
)

// StartSession runs the session of board id until it is told to quit or ctx is done
func StartSession(ctx context.Context, cfg *config.Config, id int) error {
	log.SetComponent(fmt.Sprintf("ibob%d", id))
	s, err := session.NewSession(cfg, id, session.WithRegistry(registry.NewRegistry(cfg.RegistryPath())))
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// StartManager starts a session for every configured board and serves the
// manager API. Sessions are stopped when ctx is done.
func StartManager(ctx context.Context, cfg *config.Config) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	m := manager.NewManager(cfg, executable, func(address string) manager.SessionClient {
		return NewSessionClient(address)
	})
	for _, d := range cfg.Devices {
		if err := m.Start(d.ID); err != nil {
			log.Error("%s", err)
		}
	}
	defer m.StopAll()

	api := manager.NewApiServer(m)
	errChan := make(chan error, 1)
	go func() {
		if err := api.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errChan:
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := api.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warning("Manager API shutdown: %s", shutdownErr)
	}
	return err
}
