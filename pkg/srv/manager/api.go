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

package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-ibob/pkg/log"
)

// StartRecordRequest ...
type StartRecordRequest struct {
	IDs  []int  `json:"ids,omitempty"`
	Path string `json:"path"`
}

type StopRecordRequest struct {
	IDs []int `json:"ids,omitempty"`
}

type ApiServer struct {
	*mux.Router
	manager    *Manager
	mu         sync.Mutex
	httpServer *http.Server
}

func NewApiServer(m *Manager) *ApiServer {
	a := &ApiServer{manager: m}
	a.configureRouter()
	return a
}

type panicLogger struct{}

func (panicLogger) Println(v ...interface{}) {
	log.Error("%s", fmt.Sprint(v...))
}

func (a *ApiServer) Handler() http.Handler {
	logged := handlers.LoggingHandler(log.Writer("debug"), a.Router)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{}))(logged)
}

func (a *ApiServer) Start() error {
	address := a.manager.ManagerApiAddress()
	log.Info("Starting manager API server: address: %s", address)
	a.mu.Lock()
	a.httpServer = &http.Server{
		Handler: a.Handler(),
		Addr:    address,
	}
	srv := a.httpServer
	a.mu.Unlock()
	return srv.ListenAndServe()
}

func (a *ApiServer) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.httpServer
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (a *ApiServer) configureRouter() {
	a.Router = mux.NewRouter()
	subRouter := a.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/start/{id:[0-9]+}", a.handleStart()).Methods("POST")
	subRouter.HandleFunc("/stop/{id:[0-9]+}", a.handleStop()).Methods("POST")
	subRouter.HandleFunc("/record/start", a.handleRecordStart()).Methods("POST")
	subRouter.HandleFunc("/record/stop", a.handleRecordStop()).Methods("POST")
	subRouter.HandleFunc("/sessions", a.handleSessions()).Methods("GET")
}

func writeError(w http.ResponseWriter, err error) {
	var (
		errRunning    ErrAlreadyRunning
		errNotRunning ErrNotRunning
	)
	switch {
	case errors.As(err, &errRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &errNotRunning):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func boardID(r *http.Request) int {
	// route pattern guarantees digits
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func (a *ApiServer) handleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.manager.Start(boardID(r)); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.manager.Stop(boardID(r)); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleRecordStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &StartRecordRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil || req.Path == "" {
			http.Error(w, "path required", http.StatusBadRequest)
			return
		}
		log.Debug("Handling record start request: ids: %v path: %s", req.IDs, req.Path)
		if err := a.manager.StartRecording(req.IDs, req.Path); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleRecordStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &StopRecordRequest{}
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if err := a.manager.StopRecording(req.IDs); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := a.manager.Sessions()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			log.Error("Error while encoding sessions: %s", err)
		}
	}
}
