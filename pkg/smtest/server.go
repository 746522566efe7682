/*
Copyright the DRNavigator contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package smtest provides an in-process fake Site Manager implementing the
// HTTP contract the client consumes, for use in tests.
package smtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// ServiceState is one fake managed service: its listing record and its
// current DR state.
type ServiceState struct {
	Record map[string]interface{}

	Mode    string
	Status  string
	Healthz string
	Message string

	// FailModes lists target modes whose transition ends in a failed status.
	FailModes map[string]bool
	// StuckModes lists target modes whose transition never finishes; the
	// status stays running until the caller times out.
	StuckModes map[string]bool
}

// Post is one recorded mutating request.
type Post struct {
	Service   string
	Procedure string
	NoWait    bool
	Force     bool
}

// Server is a fake Site Manager bound to an httptest listener.
type Server struct {
	mu       sync.Mutex
	services map[string]*ServiceState
	posts    []Post

	srv *httptest.Server
}

// NewServer starts a fake Site Manager over the given services. Callers own
// Close.
func NewServer(services map[string]*ServiceState) *Server {
	s := &Server{services: services}
	if s.services == nil {
		s.services = map[string]*ServiceState{}
	}

	router := mux.NewRouter()
	router.HandleFunc("/sitemanager", s.listing).Methods(http.MethodGet)
	router.HandleFunc("/sitemanager", s.procedure).Methods(http.MethodPost)
	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	s.srv = httptest.NewServer(router)
	return s
}

// URL returns the Site Manager endpoint to put in a site configuration.
func (s *Server) URL() string { return s.srv.URL + "/sitemanager" }

// Close shuts the listener down.
func (s *Server) Close() { s.srv.Close() }

// Posts returns the mutating requests received so far, in order.
func (s *Server) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Post(nil), s.posts...)
}

// SetState overrides the live DR state of a service.
func (s *Server) SetState(service, mode, status, healthz string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.services[service]; ok {
		state.Mode, state.Status, state.Healthz = mode, status, healthz
	}
}

func (s *Server) listing(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	services := map[string]interface{}{}
	for name, state := range s.services {
		record := map[string]interface{}{}
		for k, v := range state.Record {
			record[k] = v
		}
		services[name] = record
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"services": services})
}

func (s *Server) procedure(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Procedure  string `json:"procedure"`
		RunService string `json:"run-service"`
		NoWait     bool   `json:"no-wait"`
		Force      bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "malformed body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, known := s.services[body.RunService]
	if !known {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"wrong-service": body.RunService})
		return
	}

	switch body.Procedure {
	case "status":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"services": map[string]interface{}{
				body.RunService: map[string]interface{}{
					"mode":    state.Mode,
					"status":  state.Status,
					"healthz": state.Healthz,
					"message": state.Message,
				},
			},
		})
	case "active", "standby", "disable":
		s.posts = append(s.posts, Post{
			Service:   body.RunService,
			Procedure: body.Procedure,
			NoWait:    body.NoWait,
			Force:     body.Force,
		})
		if state.StuckModes[body.Procedure] {
			state.Status = "running"
		} else if state.FailModes[body.Procedure] {
			state.Status = "failed"
		} else {
			state.Mode = body.Procedure
			state.Status = "done"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message":   "procedure accepted",
			"service":   body.RunService,
			"procedure": body.Procedure,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "unknown procedure"})
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// The connection is gone; nothing sensible left to do.
		return
	}
}
