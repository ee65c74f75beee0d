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

// go-ibob session API
//
// # RESTful APIs to interact with one iBOB session
//
// Schemes: http
// Host: localhost:8100
// Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package session

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-ibob/pkg/device"
	"jinr.ru/greenlab/go-ibob/pkg/log"
	"jinr.ru/greenlab/go-ibob/pkg/personality"
	"jinr.ru/greenlab/go-ibob/pkg/srv/control"
	"jinr.ru/greenlab/go-ibob/pkg/store"
)

//go:embed swagger.json
var swaggerJSON []byte

// RecordRequest ...
type RecordRequest struct {
	Path string `json:"path"`
}

type PersonalityRequest struct {
	Name     string  `json:"name"`
	AdcClock float64 `json:"adcClock,omitempty"`
}

type PersonalityInfo struct {
	Name         string    `json:"name"`
	Capabilities []string  `json:"capabilities"`
	Frequencies  []float64 `json:"frequencies,omitempty"`
}

type CommentRequest struct {
	User    string `json:"user"`
	Comment string `json:"comment"`
}

// RegHex ...
type RegHex struct {
	Name  string `json:"name"`
	Value string `json:"value"` // hexadecimal
}

type IntegrationRequest struct {
	Seconds float64 `json:"seconds"`
}

type TvgRequest struct {
	Value uint32 `json:"value"`
}

type ApiServer struct {
	*mux.Router
	address    string
	session    *Session
	doc        *loads.Document
	mu         sync.Mutex
	httpServer *http.Server
}

// NewApiServer ...
func NewApiServer(address string, s *Session) (*ApiServer, error) {
	doc, err := loads.Analyzed(swaggerJSON, "")
	if err != nil {
		return nil, err
	}
	a := &ApiServer{
		address: address,
		session: s,
		doc:     doc,
	}
	a.configureRouter()
	return a, nil
}

// panicLogger sends handler panics to the error log
type panicLogger struct{}

func (panicLogger) Println(v ...interface{}) {
	log.Error("%s", fmt.Sprint(v...))
}

// Handler wraps the router with docs, access logging and panic recovery
func (a *ApiServer) Handler() http.Handler {
	docs := middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    fmt.Sprintf("%s session API", a.session.name),
	}, a.Router)
	logged := handlers.LoggingHandler(log.Writer("debug"), docs)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{}))(logged)
}

// Start serves the API until Shutdown is called
func (a *ApiServer) Start() error {
	log.Info("Starting API server: address: %s", a.address)
	a.mu.Lock()
	a.httpServer = &http.Server{
		Handler: a.Handler(),
		Addr:    a.address,
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
	a.Router.Handle("/metrics", a.session.metrics.Handler())
	a.Router.HandleFunc("/swagger.json", a.handleSwagger()).Methods("GET")
	subRouter := a.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /status status
	// ---
	// summary: session counters
	subRouter.HandleFunc("/status", a.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/info", a.handleInfo()).Methods("GET")
	// swagger:operation POST /record/{action:start|stop} record
	// ---
	// summary: open or close the archive
	subRouter.HandleFunc("/record/start", a.handleRecordStart()).Methods("POST")
	subRouter.HandleFunc("/record/stop", a.handleRecordStop()).Methods("POST")
	subRouter.HandleFunc("/personality", a.handlePersonalityGet()).Methods("GET")
	subRouter.HandleFunc("/personality", a.handlePersonalitySet()).Methods("POST")
	subRouter.HandleFunc("/personality", a.handlePersonalityClear()).Methods("DELETE")
	subRouter.HandleFunc("/comment", a.handleComment()).Methods("POST")
	subRouter.HandleFunc("/spec_info", a.handleSpecInfo()).Methods("POST")
	// register names contain slashes
	subRouter.HandleFunc("/reg", a.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/reg", a.handleRegWrite()).Methods("POST")
	subRouter.HandleFunc("/reg/{name:.+}", a.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/integration", a.handleIntegration()).Methods("POST")
	subRouter.HandleFunc("/tvg", a.handleTvg()).Methods("POST")
	subRouter.HandleFunc("/restart", a.handleRestart()).Methods("POST")
	subRouter.HandleFunc("/snapshot", a.handleSnapshot()).Methods("POST")
	subRouter.HandleFunc("/latest/{type}", a.handleLatest()).Methods("GET")
	subRouter.HandleFunc("/quit", a.handleQuit()).Methods("POST")
}

// httpStatus maps session errors to response codes
func httpStatus(err error) int {
	var (
		errSet        ErrPersonalitySet
		errRecording  ErrRecording
		errOpen       store.ErrArchiveOpen
		errNoPers     ErrNoPersonality
		errNoData     store.ErrNoData
		errUnknown    store.ErrUnknownMeasurement
		errClosed     store.ErrStoreClosed
		errUnknownP   personality.ErrUnknownPersonality
		errNotSupp    ErrNotSupported
		errTimeout    control.ErrControlTimeout
		errResponse   device.ErrUnexpectedResponse
		errNoDevice   ErrNoDevice
		errBadAddress device.ErrBadAddress
	)
	switch {
	case errors.As(err, &errSet), errors.As(err, &errRecording), errors.As(err, &errOpen):
		return http.StatusConflict
	case errors.As(err, &errNoPers), errors.As(err, &errNoData), errors.As(err, &errUnknown),
		errors.As(err, &errClosed):
		return http.StatusNotFound
	case errors.As(err, &errUnknownP), errors.As(err, &errNotSupp), errors.As(err, &errBadAddress):
		return http.StatusBadRequest
	case errors.As(err, &errTimeout), errors.As(err, &errResponse), errors.As(err, &errNoDevice):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), httpStatus(err))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while encoding response: %s", err)
	}
}

func (a *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(a.doc.Raw())
	}
}

func (a *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, a.session.Status())
	}
}

func (a *ApiServer) handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(a.session.Info()))
	}
}

func (a *ApiServer) handleRecordStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &RecordRequest{}
		if err := json.NewDecoder(r.Body).Decode(rec); err != nil || rec.Path == "" {
			http.Error(w, "path required", http.StatusBadRequest)
			return
		}
		log.Debug("Handling record start request: path: %s", rec.Path)
		if err := a.session.StartWriting(rec.Path); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleRecordStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.StopWriting(); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handlePersonalityGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dec := a.session.Decoder()
		if dec == nil {
			writeError(w, ErrNoPersonality{})
			return
		}
		writeJSON(w, &PersonalityInfo{
			Name:         dec.Name(),
			Capabilities: personality.Capabilities(dec),
			Frequencies:  dec.BasebandFrequencies(),
		})
	}
}

func (a *ApiServer) handlePersonalitySet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := &PersonalityRequest{}
		if err := json.NewDecoder(r.Body).Decode(p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling set personality request: %s adcClock: %.1f", p.Name, p.AdcClock)
		if err := a.session.SetPersonality(p.Name, p.AdcClock); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handlePersonalityClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.ClearPersonality(); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &CommentRequest{}
		if err := json.NewDecoder(r.Body).Decode(c); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.session.WriteComment(c.User, c.Comment); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleSpecInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row := store.Row{}
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.session.WriteInfo(row); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleRegRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["name"]
		log.Debug("Handling reg read request: %s", name)
		value, err := a.session.ReadRegister(name)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, &RegHex{Name: name, Value: fmt.Sprintf("0x%08x", value)})
	}
}

func (a *ApiServer) handleRegReadAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regs, err := a.session.Registers()
		if err != nil {
			writeError(w, err)
			return
		}
		regsHex := []*RegHex{}
		for name, value := range regs {
			regsHex = append(regsHex, &RegHex{Name: name, Value: fmt.Sprintf("0x%08x", value)})
		}
		writeJSON(w, regsHex)
	}
}

func (a *ApiServer) handleRegWrite() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		regHex := &RegHex{}
		if err := json.NewDecoder(r.Body).Decode(regHex); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling reg write request: %s value: %s", regHex.Name, regHex.Value)
		value, err := strconv.ParseUint(regHex.Value, 0, 32)
		if err != nil || regHex.Name == "" {
			http.Error(w, fmt.Sprintf("bad register write: %q = %q", regHex.Name, regHex.Value), http.StatusBadRequest)
			return
		}
		if err = a.session.WriteRegister(regHex.Name, uint32(value)); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleIntegration() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i := &IntegrationRequest{}
		if err := json.NewDecoder(r.Body).Decode(i); err != nil || i.Seconds <= 0 {
			http.Error(w, "positive seconds required", http.StatusBadRequest)
			return
		}
		if err := a.session.SetIntegrationTime(i.Seconds); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleTvg() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := &TvgRequest{}
		if err := json.NewDecoder(r.Body).Decode(t); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := a.session.SetTvg(t.Value); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleRestart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.Restart(); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.session.RequestAdcSnapshot(); err != nil {
			writeError(w, err)
			return
		}
	}
}

func (a *ApiServer) handleLatest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := a.session.Latest(mux.Vars(r)["type"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, snap)
	}
}

func (a *ApiServer) handleQuit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Handling quit request")
		go a.session.Quit()
	}
}
