package transcoder

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	PresetVideo = "video"
	PresetAudio = "audio"
)

// Preset is a reusable set of ffmpeg output settings.
type Preset struct {
	Name         string
	VideoCodec   string
	AudioCodec   string
	VideoBitrate string
	AudioBitrate string
	PixelFormat  string
	Filters      []string
	ExtraArgs    []string
}

// Args returns the encoder arguments. Filters are returned separately by
// FilterChain because the dispatcher prepends its own scale filter.
func (p Preset) Args() []string {
	args := make([]string, 0, 10+len(p.ExtraArgs))
	if p.VideoCodec != "" {
		args = append(args, "-c:v", p.VideoCodec)
	}
	if p.AudioCodec != "" {
		args = append(args, "-c:a", p.AudioCodec)
	}
	if p.VideoBitrate != "" {
		args = append(args, "-b:v", p.VideoBitrate)
	}
	if p.AudioBitrate != "" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	if p.PixelFormat != "" {
		args = append(args, "-pix_fmt", p.PixelFormat)
	}
	return append(args, p.ExtraArgs...)
}

func (p Preset) FilterChain(first ...string) []string {
	return append(append([]string(nil), first...), p.Filters...)
}

type PresetLibrary struct {
	presets map[string]Preset
}

func NewPresetLibrary(m map[string]Preset) *PresetLibrary {
	cp := make(map[string]Preset, len(m))
	for k, v := range m {
		v.Name = k
		cp[k] = v
	}
	return &PresetLibrary{presets: cp}
}

// DefaultPresetLibrary holds the built-in web-safe encodings: H.264/AAC MP4
// for video and MP3 for audio.
func DefaultPresetLibrary() *PresetLibrary {
	return NewPresetLibrary(map[string]Preset{
		PresetVideo: {
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			PixelFormat: "yuv420p",
			ExtraArgs:   []string{"-preset", "veryfast", "-movflags", "+faststart"},
		},
		PresetAudio: {
			AudioCodec:   "libmp3lame",
			AudioBitrate: "128k",
		},
	})
}

func (l *PresetLibrary) Get(name string) (Preset, bool) {
	if l == nil {
		return Preset{}, false
	}
	preset, ok := l.presets[name]
	return preset, ok
}

// LoadPresetFile reads presets from YAML and layers them over the defaults.
func LoadPresetFile(path string) (*PresetLibrary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("load preset file: %w", err)
	}
	type rawPreset struct {
		VideoCodec   string   `yaml:"video_codec"`
		AudioCodec   string   `yaml:"audio_codec"`
		VideoBitrate string   `yaml:"video_bitrate"`
		AudioBitrate string   `yaml:"audio_bitrate"`
		PixelFormat  string   `yaml:"pixel_format"`
		Filters      []string `yaml:"filters"`
		ExtraArgs    []string `yaml:"extra_args"`
	}
	var payload struct {
		Presets map[string]rawPreset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse preset file: %w", err)
	}

	merged := DefaultPresetLibrary().presets
	for name, rp := range payload.Presets {
		merged[name] = Preset{
			VideoCodec:   rp.VideoCodec,
			AudioCodec:   rp.AudioCodec,
			VideoBitrate: rp.VideoBitrate,
			AudioBitrate: rp.AudioBitrate,
			PixelFormat:  rp.PixelFormat,
			Filters:      append([]string(nil), rp.Filters...),
			ExtraArgs:    append([]string(nil), rp.ExtraArgs...),
		}
	}
	return NewPresetLibrary(merged), nil
}
