//go:build linux

package cmd

import (
	perf "github.com/hodgesds/perf-utils"
	"github.com/sirupsen/logrus"
)

// measure runs f on a locked OS thread under a CPU instruction counter
func measure(name string, f func() error) error {
	var (
		ran  bool
		ferr error
	)
	pv, err := perf.CPUInstructions(func() error {
		ran, ferr = true, f()
		return nil
	})
	switch {
	case err != nil && !ran:
		logrus.WithError(err).Warn("perf counters unavailable, running unmeasured")
		return f()
	case err != nil:
		logrus.WithError(err).Warn("reading perf counters")
	default:
		logrus.WithFields(logrus.Fields{
			"command":      name,
			"instructions": pv.Value,
			"timeEnabled":  pv.TimeEnabled,
			"timeRunning":  pv.TimeRunning,
		}).Info("perf")
	}
	return ferr
}
