package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/converr"
	"github.com/rodrigovega-17dev/paltalk-language-learning-avatar-sub001/internal/ports"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reply.mp3")
	if err := os.WriteFile(path, []byte("mp3"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestPlayerPlaysFile(t *testing.T) {
	p := NewExecPlayer("/bin/sh", []string{"-c", `test -f "{path}"`}, nil)

	if err := p.Play(context.Background(), writeAudioFile(t)); err != nil {
		t.Fatalf("Play: %v", err)
	}
}

func TestPlayerSubstitutesRouteDevice(t *testing.T) {
	out := filepath.Join(t.TempDir(), "device.txt")
	p := NewExecPlayer(
		"/bin/sh",
		[]string{"-c", `printf '%s' "{device}" > "` + out + `"`},
		map[ports.OutputRoute]string{
			ports.RouteEarpiece:    "hw:0",
			ports.RouteLoudspeaker: "hw:1",
		},
	)

	if err := p.SetRoute(ports.RouteLoudspeaker); err != nil {
		t.Fatalf("SetRoute: %v", err)
	}
	if err := p.Play(context.Background(), "ignored"); err != nil {
		t.Fatalf("Play: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read device file: %v", err)
	}
	if string(got) != "hw:1" {
		t.Fatalf("device = %q, want hw:1", got)
	}
}

func TestPlayerRejectsUnknownRoute(t *testing.T) {
	p := NewExecPlayer("/bin/sh", []string{"-c", "true"}, nil)

	err := p.SetRoute(ports.OutputRoute("headset"))
	ce, ok := converr.As(err)
	if !ok || ce.Kind != converr.KindAudio {
		t.Fatalf("error = %v, want audio error", err)
	}
}

func TestPlayerPermissionDenied(t *testing.T) {
	p := NewExecPlayer("/bin/sh", []string{"-c", `echo 'output: Permission denied' >&2; exit 1`}, nil)

	err := p.Play(context.Background(), "x")
	ce, ok := converr.As(err)
	if !ok || ce.Kind != converr.KindPermission {
		t.Fatalf("error = %v, want permission error", err)
	}
}

func TestPlayerFailureIsAudioError(t *testing.T) {
	p := NewExecPlayer("/bin/sh", []string{"-c", `exit 3`}, nil)

	err := p.Play(context.Background(), "x")
	ce, ok := converr.As(err)
	if !ok || ce.Kind != converr.KindAudio || !ce.Recoverable {
		t.Fatalf("error = %v, want recoverable audio error", err)
	}
}
