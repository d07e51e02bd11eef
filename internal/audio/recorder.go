package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
)

const (
	// how long a freshly started capture is watched for an immediate death
	startProbe = 200 * time.Millisecond
	// how long StopCapture waits for the binary to finalize the file
	stopGrace = 3 * time.Second
)

// ExecRecorder shells out to a capture binary (arecord by default) and
// collects the utterance into a file. One capture at a time; the process
// runs until StopCapture interrupts it, independent of the start context.
type ExecRecorder struct {
	binary string
	args   []string // template args, "{path}" becomes the output file
	dir    string

	mu     sync.Mutex
	cmd    *exec.Cmd
	path   string
	stderr *bytes.Buffer
	waitCh chan error
}

func NewExecRecorder(binary string, args []string, dir string) *ExecRecorder {
	if binary == "" {
		binary = "arecord"
		args = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "{path}"}
	}
	if dir == "" {
		dir = os.TempDir()
	}
	return &ExecRecorder{binary: binary, args: args, dir: dir}
}

func (r *ExecRecorder) StartCapture(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return converr.Audio(nil, "capture already running")
	}

	path := filepath.Join(r.dir, fmt.Sprintf("utterance-%s.wav", uuid.NewString()))
	args := make([]string, 0, len(r.args))
	for _, a := range r.args {
		args = append(args, strings.ReplaceAll(a, "{path}", path))
	}

	stderr := &bytes.Buffer{}
	cmd := exec.Command(r.binary, args...)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return classifyDeviceError(err, stderr.String(), "start capture")
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// a capture that dies right away is a device problem, not a recording
	select {
	case err := <-waitCh:
		_ = os.Remove(path)
		if err == nil {
			err = errors.New("capture exited prematurely")
		}
		return classifyDeviceError(err, stderr.String(), "start capture")
	case <-time.After(startProbe):
	}

	r.cmd, r.path, r.stderr, r.waitCh = cmd, path, stderr, waitCh
	return nil
}

func (r *ExecRecorder) StopCapture(ctx context.Context) (string, error) {
	r.mu.Lock()
	cmd, path, stderr, waitCh := r.cmd, r.path, r.stderr, r.waitCh
	r.cmd, r.path, r.stderr, r.waitCh = nil, "", nil, nil
	r.mu.Unlock()

	if cmd == nil {
		return "", converr.Audio(nil, "no capture in progress")
	}

	// ask the binary to finalize the file
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-waitCh:
	case <-time.After(stopGrace):
		_ = cmd.Process.Kill()
		<-waitCh
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitCh
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(path)
		return "", classifyDeviceError(errors.New("no audio captured"), stderr.String(), "stop capture")
	}
	return path, nil
}

// classifyDeviceError maps exec failures onto the error taxonomy, spotting
// permission denials by the diagnostics the binary printed.
func classifyDeviceError(err error, stderr, op string) error {
	detail := strings.ToLower(stderr)
	if err != nil {
		detail += " " + strings.ToLower(err.Error())
	}

	cause := err
	if msg := strings.TrimSpace(stderr); msg != "" {
		cause = fmt.Errorf("%s", msg)
		if err != nil {
			cause = fmt.Errorf("%s: %w", msg, err)
		}
	}

	switch {
	case strings.Contains(detail, "permission denied"),
		strings.Contains(detail, "access denied"),
		strings.Contains(detail, "not authorized"),
		strings.Contains(detail, "operation not permitted"):
		return converr.Permission(cause, op+": device access denied")
	default:
		return converr.Audio(cause, op+" failed")
	}
}
