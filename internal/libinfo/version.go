/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo provides the version of the INSPECTA service and values derived from it.
package libinfo

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// AppName is the short name of the service.
const AppName = "inspecta"

// PrometheusVersionLabel is the name of the label with the service version.
const PrometheusVersionLabel = "inspecta_version"

// Version may be set at build time with -ldflags "-X github.com/inspecta/inspecta/internal/libinfo.Version=v1.2.3".
// When empty, the version of the main module from the build info is used.
var Version string

var appVersion string
var appVersionOnce sync.Once

// GetVersion returns the version of the service.
func GetVersion() string {
	appVersionOnce.Do(initVersion)
	return appVersion
}

func initVersion() {
	appVersion = Version
	if appVersion == "" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			appVersion = extractMainVersion(buildInfo)
		}
	}
	if appVersion == "" {
		appVersion = "v0.0.0"
	}
}

// extractMainVersion returns the version of the main module. "(devel)" is reported by go run/go build
// of a local checkout and is treated as unknown.
func extractMainVersion(buildInfo *debug.BuildInfo) string {
	if buildInfo == nil || buildInfo.Main.Version == "(devel)" {
		return ""
	}
	return buildInfo.Main.Version
}

// UserAgent returns the value of the User-Agent header for outgoing requests.
func UserAgent() string {
	return AppName + "/" + GetVersion()
}

// AddPrometheusVersionLabel returns a copy of labels with the service version label added.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusVersionLabel] = GetVersion()
	return labelsCopy
}

// NewBuildInfoCollector creates a gauge that is always 1 and carries the version and the Go version as labels.
func NewBuildInfoCollector(namespace string) prometheus.Collector {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build information of the service.",
		ConstLabels: AddPrometheusVersionLabel(prometheus.Labels{
			"go_version": runtime.Version(),
		}),
	})
	gauge.Set(1)
	return gauge
}
