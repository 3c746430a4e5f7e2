package docker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/docker/client"
)

// WaitReady blocks until the Docker daemon answers a ping, retrying while
// the connection fails (daemon still booting). Any other ping error is
// returned immediately.
func (r *Runtime) WaitReady(ctx context.Context) error {
	log := slog.With("component", "docker")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	waiting := false
	for {
		_, err := r.cli.Ping(ctx)
		if err == nil {
			if waiting {
				log.Debug("daemon reachable")
			}
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		if !waiting {
			waiting = true
			log.Debug("waiting for docker daemon")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
