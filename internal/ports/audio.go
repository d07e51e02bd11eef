package ports

import "context"

// OutputRoute selects the playback device.
type OutputRoute string

const (
	RouteEarpiece    OutputRoute = "earpiece"
	RouteLoudspeaker OutputRoute = "loudspeaker"
)

// Recorder captures microphone audio into a file. Implementations classify
// their failures: permission denials and device errors come back already
// wrapped in the conversation error taxonomy.
type Recorder interface {
	StartCapture(ctx context.Context) error
	// StopCapture stops an in-flight capture and returns the recorded file path.
	StopCapture(ctx context.Context) (string, error)
}

// Player plays audio files on the configured output route.
type Player interface {
	SetRoute(route OutputRoute) error
	// Play blocks until playback completes.
	Play(ctx context.Context, filePath string) error
}
