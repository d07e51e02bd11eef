package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

// ExecPlayer shells out to a playback binary (ffplay by default) and blocks
// until it exits. SetRoute swaps the device argument handed to the binary.
type ExecPlayer struct {
	binary  string
	args    []string // template args, "{path}" and "{device}" placeholders
	devices map[ports.OutputRoute]string

	mu    sync.Mutex
	route ports.OutputRoute
}

func NewExecPlayer(binary string, args []string, devices map[ports.OutputRoute]string) *ExecPlayer {
	if binary == "" {
		binary = "ffplay"
		args = []string{"-nodisp", "-autoexit", "-loglevel", "error", "{path}"}
	}
	if devices == nil {
		devices = map[ports.OutputRoute]string{}
	}
	return &ExecPlayer{
		binary:  binary,
		args:    args,
		devices: devices,
		route:   ports.RouteEarpiece,
	}
}

func (p *ExecPlayer) SetRoute(route ports.OutputRoute) error {
	switch route {
	case ports.RouteEarpiece, ports.RouteLoudspeaker:
	default:
		return converr.Audio(nil, fmt.Sprintf("unknown output route %q", route))
	}
	p.mu.Lock()
	p.route = route
	p.mu.Unlock()
	return nil
}

func (p *ExecPlayer) Play(ctx context.Context, filePath string) error {
	p.mu.Lock()
	device := p.devices[p.route]
	p.mu.Unlock()

	args := make([]string, 0, len(p.args))
	for _, a := range p.args {
		a = strings.ReplaceAll(a, "{path}", filePath)
		a = strings.ReplaceAll(a, "{device}", device)
		args = append(args, a)
	}

	stderr := &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return classifyDeviceError(err, stderr.String(), "playback")
	}
	return nil
}
