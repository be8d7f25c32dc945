// Package audio handles capture-side concerns: microphone permission,
// chunk buffering into one payload, and live amplitude sampling for the
// visualizer.
package audio

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrPermissionDenied is returned when microphone access was refused.
	// Recoverable: the user can grant access and retry.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrNotPermitted is returned by Start before permission was granted.
	ErrNotPermitted = errors.New("recording requires microphone permission")
	// ErrAlreadyRecording is returned by Start while a recording is active.
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// Device abstracts microphone acquisition. RequestAccess blocks on the
// permission prompt and returns ErrPermissionDenied on refusal.
type Device interface {
	RequestAccess(ctx context.Context) error
}

// Payload is one finished recording. Empty reports no captured data, in
// which case no transcription attempt should be made.
type Payload struct {
	Data     []byte
	MimeType string
}

// Empty reports whether nothing was captured.
func (p Payload) Empty() bool {
	return len(p.Data) == 0
}

// Recorder buffers audio chunks between Start and Stop and feeds the
// amplitude monitor while recording. One Recorder serves one capture
// source; it is not shared.
type Recorder struct {
	device   Device
	monitor  *Monitor
	mimeType string

	mu        sync.Mutex
	granted   bool
	recording bool
	buffer    bytes.Buffer
}

// NewRecorder creates a recorder for the device. The monitor cadence feeds
// the amplitude visualization.
func NewRecorder(device Device, mimeType string, levelInterval time.Duration) *Recorder {
	if mimeType == "" {
		mimeType = "audio/webm;codecs=opus"
	}
	return &Recorder{
		device:   device,
		monitor:  NewMonitor(levelInterval),
		mimeType: mimeType,
	}
}

// RequestPermission prompts for microphone access. Denial is reported as
// ErrPermissionDenied and leaves the recorder able to retry later.
func (r *Recorder) RequestPermission(ctx context.Context) error {
	if err := r.device.RequestAccess(ctx); err != nil {
		r.mu.Lock()
		r.granted = false
		r.mu.Unlock()
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return errors.Join(ErrPermissionDenied, err)
	}

	r.mu.Lock()
	r.granted = true
	r.mu.Unlock()
	return nil
}

// Granted reports whether permission has been obtained.
func (r *Recorder) Granted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.granted
}

// Start begins buffering chunks and starts the amplitude loop. It fails
// fast when permission is missing.
func (r *Recorder) Start(onLevel func(level float64)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.granted {
		return ErrNotPermitted
	}
	if r.recording {
		return ErrAlreadyRecording
	}

	r.recording = true
	r.buffer.Reset()
	r.monitor.Start(onLevel)
	return nil
}

// Write appends one captured chunk and refreshes the amplitude frame.
// Chunks arriving while not recording are dropped.
func (r *Recorder) Write(chunk []byte) {
	r.mu.Lock()
	if !r.recording || len(chunk) == 0 {
		r.mu.Unlock()
		return
	}
	r.buffer.Write(chunk)
	r.mu.Unlock()

	r.monitor.SetFrame(chunk)
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop finalizes the buffered chunks into a single payload and stops the
// amplitude loop. Calling Stop with nothing captured returns an empty
// payload; calling it while not recording is a harmless no-op.
func (r *Recorder) Stop() Payload {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return Payload{MimeType: r.mimeType}
	}
	r.recording = false
	data := append([]byte(nil), r.buffer.Bytes()...)
	r.buffer.Reset()
	r.mu.Unlock()

	r.monitor.Stop()
	return Payload{Data: data, MimeType: r.mimeType}
}
