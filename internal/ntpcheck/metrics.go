package ntpcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clockOffsetSeconds = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "dockmon_clock_offset_seconds",
		Help: "Host clock offset against the NTP server at the last check",
	},
)
