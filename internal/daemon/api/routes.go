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
	"fmt"
	"net/http"

	"github.com/portgate/portgate/internal/daemon/httputil"
	"github.com/portgate/portgate/internal/route/store"
)

// RoutesHandler serves the current route table.
type RoutesHandler struct {
	store         *store.Store
	publicBaseURL string
}

// NewRoutesHandler creates a routes handler.
func NewRoutesHandler(s *store.Store, publicBaseURL string) *RoutesHandler {
	return &RoutesHandler{store: s, publicBaseURL: publicBaseURL}
}

// RegisterRoutes registers the routes API on the router.
func (h *RoutesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /routes", h.handleList)
}

// RouteInfo is one route as exposed by the read API.
type RouteInfo struct {
	Token     string `json:"token"`
	Port      int    `json:"port"`
	PublicURL string `json:"publicUrl"`
	CreatedAt int64  `json:"createdAt"`
}

// ListRoutesResponse is the response body for GET /routes.
type ListRoutesResponse struct {
	Routes []RouteInfo `json:"routes"`
}

// handleList handles GET /routes. The table is loaded fresh from the
// state file, so the response reflects the last completed cycle and
// never an in-progress one.
func (h *RoutesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	table := h.store.Load()

	routes := make([]RouteInfo, 0, len(table))
	for _, token := range table.Tokens() {
		rt := table[token]
		if rt.Port == 0 {
			continue
		}
		publicURL := ""
		if h.publicBaseURL != "" {
			publicURL = fmt.Sprintf("%s/p/%s/", h.publicBaseURL, token)
		}
		routes = append(routes, RouteInfo{
			Token:     token,
			Port:      rt.Port,
			PublicURL: publicURL,
			CreatedAt: rt.CreatedAt,
		})
	}

	httputil.WriteJSON(w, http.StatusOK, ListRoutesResponse{Routes: routes})
}
