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

package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cycleTotal tracks completed reconciliation cycles by outcome
	cycleTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portgate_reconcile_cycles_total",
			Help: "Total reconciliation cycles by result",
		},
		[]string{"result"},
	)

	// routesCreated tracks routes allocated for newly discovered ports
	routesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portgate_routes_created_total",
			Help: "Total routes created",
		},
	)

	// routesRemoved tracks stale routes garbage collected
	routesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portgate_routes_removed_total",
			Help: "Total routes removed",
		},
	)

	// discoveryErrors tracks failed port scans
	discoveryErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portgate_discovery_errors_total",
			Help: "Total failed port discovery attempts",
		},
	)

	// publishTotal tracks map artifact publishes by outcome
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portgate_publish_total",
			Help: "Total gateway map publishes by result",
		},
		[]string{"result"},
	)

	// activeRoutes tracks the current route table size
	activeRoutes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portgate_active_routes",
			Help: "Number of routes in the current table",
		},
	)
)
