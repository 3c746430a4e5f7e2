package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dockmon"
	"dockmon/internal/collect"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-units"
)

var _ collect.ContainerRuntime = (*Runtime)(nil)

// Runtime implements collect.ContainerRuntime using the Docker Engine API.
type Runtime struct {
	cli *client.Client
}

// NewRuntime creates a Runtime with a new Docker client from the environment.
func NewRuntime() (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Runtime{cli: cli}, nil
}

// NewRuntimeFromClient wraps an existing Docker client.
func NewRuntimeFromClient(cli *client.Client) *Runtime {
	return &Runtime{cli: cli}
}

func (r *Runtime) ListContainers(ctx context.Context, includeStopped bool) ([]dockmon.ContainerSummary, error) {
	containers, err := r.cli.ContainerList(ctx, container.ListOptions{All: includeStopped})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	out := make([]dockmon.ContainerSummary, 0, len(containers))
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		out = append(out, dockmon.ContainerSummary{
			ID:        c.ID,
			Name:      name,
			Image:     c.Image,
			CreatedAt: time.Unix(c.Created, 0).UTC(),
			Status:    dockmon.ContainerStatus(c.State),
		})
	}
	return out, nil
}

// InspectContainer asks the daemon for size accounting alongside the usual
// detail. Errors pass through unwrapped so callers can classify them with
// errdefs.IsNotFound.
func (r *Runtime) InspectContainer(ctx context.Context, id string) (dockmon.ContainerDetail, error) {
	info, _, err := r.cli.ContainerInspectWithRaw(ctx, id, true)
	if err != nil {
		return dockmon.ContainerDetail{}, err
	}

	detail := dockmon.ContainerDetail{
		ID:           info.ID,
		RestartCount: info.RestartCount,
	}
	if info.State != nil {
		detail.Status = dockmon.ContainerStatus(info.State.Status)
	}
	// Created is RFC3339Nano; a malformed value leaves the zero time.
	created, _ := time.Parse(time.RFC3339Nano, info.Created)
	detail.CreatedAt = created
	if !created.IsZero() {
		detail.RunningFor = units.HumanDuration(time.Now().UTC().Sub(created)) + " ago"
	}

	// Size fields stay nil when the daemon skips size accounting even
	// though we asked for it (some storage drivers do).
	if info.SizeRw != nil || info.SizeRootFs != nil {
		detail.HasSizes = true
		if info.SizeRw != nil {
			detail.SizeRw = *info.SizeRw
		}
		if info.SizeRootFs != nil {
			detail.SizeRootFs = *info.SizeRootFs
		}
	}
	return detail, nil
}

func (r *Runtime) SystemDiskUsage(ctx context.Context) (map[string]dockmon.SizeInfo, error) {
	du, err := r.cli.DiskUsage(ctx, types.DiskUsageOptions{
		Types: []types.DiskUsageObject{types.ContainerObject},
	})
	if err != nil {
		return nil, fmt.Errorf("docker system df: %w", err)
	}

	sizes := make(map[string]dockmon.SizeInfo, len(du.Containers))
	for _, c := range du.Containers {
		sizes[c.ID] = dockmon.SizeInfo{SizeRw: c.SizeRw, SizeRootFs: c.SizeRootFs}
	}
	return sizes, nil
}

// Ping reports whether the daemon currently answers requests.
func (r *Runtime) Ping(ctx context.Context) error {
	_, err := r.cli.Ping(ctx)
	return err
}

func (r *Runtime) Close() error {
	return r.cli.Close()
}
