package domain

import "time"

type Status string

const (
	StatusIdle       Status = "idle"
	StatusRequesting Status = "requesting"
	StatusRecording  Status = "recording"
	StatusStopped    Status = "stopped"
	StatusErrored    Status = "errored"
)

// Reference is an opaque, releasable handle that makes an artifact addressable
// without copying its bytes. The zero value means "no reference".
type Reference string

func (r Reference) IsZero() bool {
	return r == ""
}

// Artifact is the finished recording: every encoded chunk concatenated in
// emission order.
type Artifact struct {
	Data      []byte
	MimeType  string
	CreatedAt time.Time
	Duration  int
}

func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}
	return len(a.Data)
}

type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SampleRate       int
	ChannelCount     int
}

// Snapshot is a point-in-time copy of the observable session fields.
type Snapshot struct {
	Status         Status
	Recording      bool
	HasRecording   bool
	ElapsedSeconds int
	Reference      Reference
	Artifact       *Artifact
	Supported      bool
	Error          *RecordingError
	ChunkCount     int
}
