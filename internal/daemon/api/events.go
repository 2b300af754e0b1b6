// Copyright 2026 The Portgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"net/http"
	"strconv"

	"github.com/portgate/portgate/internal/daemon/httputil"
	"github.com/portgate/portgate/internal/route/history"
)

// EventsHandler serves the route event history.
type EventsHandler struct {
	history *history.Store
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(h *history.Store) *EventsHandler {
	return &EventsHandler{history: h}
}

// RegisterRoutes registers the events API on the router.
func (h *EventsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/events", h.handleList)
}

// ListEventsResponse is the response body for GET /v1/events.
type ListEventsResponse struct {
	Events []history.Event `json:"events"`
}

// handleList handles GET /v1/events?limit=N, newest first.
func (h *EventsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListEventsResponse{Events: events})
}
