// Package devices is the capture boundary: it hands out local media tracks
// without the rest of the application knowing where they come from.
package devices

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/team-telnyx/telnyx-meet-sub000/internal/room"
)

// DeviceKind distinguishes capture device classes.
type DeviceKind string

const (
	KindAudioInput DeviceKind = "audioinput"
	KindVideoInput DeviceKind = "videoinput"
)

// Device describes one capture device.
type Device struct {
	ID    string     `json:"id"`
	Kind  DeviceKind `json:"kind"`
	Label string     `json:"label"`
}

// Constraints selects which kinds of media to acquire and from which devices.
// Empty device ids mean "any".
type Constraints struct {
	Audio         bool
	Video         bool
	AudioDeviceID string
	VideoDeviceID string
}

// Media is the result of an acquisition. Absent kinds are nil.
type Media struct {
	Audio room.Track
	Video room.Track
}

// PermissionError reports that the user or platform denied access to a
// capture kind. Callers surface it next to the control that asked, without
// tearing the session down.
type PermissionError struct {
	Kind DeviceKind
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("devices: permission denied for %s", e.Kind)
}

// ErrNoSuchDevice is returned when a requested device id is unknown.
var ErrNoSuchDevice = errors.New("devices: no such device")

// Provider abstracts media capture.
type Provider interface {
	EnumerateDevices() ([]Device, error)
	AcquireMedia(c Constraints) (Media, error)
	AcquireScreen() (room.Track, error)
}

// StaticProvider serves synthetic pion sample tracks. It backs the headless
// client and tests, where no capture hardware exists.
type StaticProvider struct {
	devices  []Device
	denied   map[DeviceKind]bool
	streamID string
}

// NewStaticProvider creates a provider with one synthetic microphone and one
// synthetic camera.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		devices: []Device{
			{ID: "static-mic", Kind: KindAudioInput, Label: "Synthetic Microphone"},
			{ID: "static-cam", Kind: KindVideoInput, Label: "Synthetic Camera"},
		},
		denied:   make(map[DeviceKind]bool),
		streamID: uuid.NewString(),
	}
}

// Deny makes subsequent acquisitions of kind fail with a PermissionError.
func (p *StaticProvider) Deny(kind DeviceKind) { p.denied[kind] = true }

// EnumerateDevices lists the synthetic devices.
func (p *StaticProvider) EnumerateDevices() ([]Device, error) {
	out := make([]Device, len(p.devices))
	copy(out, p.devices)
	return out, nil
}

// AcquireMedia returns sample tracks for the requested kinds.
func (p *StaticProvider) AcquireMedia(c Constraints) (Media, error) {
	var m Media
	if c.Audio {
		if p.denied[KindAudioInput] {
			return Media{}, &PermissionError{Kind: KindAudioInput}
		}
		if err := p.checkDevice(c.AudioDeviceID, KindAudioInput); err != nil {
			return Media{}, err
		}
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			uuid.NewString(), p.streamID)
		if err != nil {
			return Media{}, fmt.Errorf("create audio track: %w", err)
		}
		m.Audio = track
	}
	if c.Video {
		if p.denied[KindVideoInput] {
			return Media{}, &PermissionError{Kind: KindVideoInput}
		}
		if err := p.checkDevice(c.VideoDeviceID, KindVideoInput); err != nil {
			return Media{}, err
		}
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
			uuid.NewString(), p.streamID)
		if err != nil {
			return Media{}, fmt.Errorf("create video track: %w", err)
		}
		m.Video = track
	}
	return m, nil
}

// AcquireScreen returns a synthetic screen-share video track.
func (p *StaticProvider) AcquireScreen() (room.Track, error) {
	if p.denied[KindVideoInput] {
		return nil, &PermissionError{Kind: KindVideoInput}
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		uuid.NewString(), p.streamID)
	if err != nil {
		return nil, fmt.Errorf("create screen track: %w", err)
	}
	return track, nil
}

func (p *StaticProvider) checkDevice(id string, kind DeviceKind) error {
	if id == "" {
		return nil
	}
	for _, d := range p.devices {
		if d.ID == id && d.Kind == kind {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSuchDevice, id)
}

// WriteSilence pushes one opus silence sample into a static track. The
// headless client calls it on a ticker to keep the publication alive.
func WriteSilence(t room.Track) error {
	track, ok := t.(*webrtc.TrackLocalStaticSample)
	if !ok {
		return nil
	}
	return track.WriteSample(media.Sample{Data: []byte{0xf8, 0xff, 0xfe}, Duration: 20 * time.Millisecond})
}
