package transcode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Preset describes the ffmpeg output settings applied to every uploaded video.
// The output is always written to an .mp4 file and stored as video/mp4.
type Preset struct {
	Name         string   `yaml:"-"`
	VideoCodec   string   `yaml:"video_codec"`
	AudioCodec   string   `yaml:"audio_codec"`
	VideoBitrate string   `yaml:"video_bitrate"`
	AudioBitrate string   `yaml:"audio_bitrate"`
	PixelFormat  string   `yaml:"pixel_format"`
	FrameRate    string   `yaml:"frame_rate"`
	Filters      []string `yaml:"filters"`
	ExtraArgs    []string `yaml:"extra_args"`
}

// DefaultPreset compresses to H.264/AAC in an MP4 container suitable for progressive playback.
var DefaultPreset = Preset{
	Name:        "default",
	VideoCodec:  "libx264",
	AudioCodec:  "aac",
	PixelFormat: "yuv420p",
	Filters:     []string{"scale='min(1280,iw)':-2"},
	ExtraArgs:   []string{"-crf", "28", "-preset", "veryfast", "-movflags", "+faststart"},
}

// Args returns the output arguments encoded by the preset.
func (p Preset) Args() []string {
	args := make([]string, 0, 12+len(p.ExtraArgs))
	if p.VideoCodec != "" {
		args = append(args, "-c:v", p.VideoCodec)
	}
	if p.AudioCodec != "" {
		args = append(args, "-c:a", p.AudioCodec)
	}
	if len(p.Filters) > 0 {
		args = append(args, "-vf", strings.Join(p.Filters, ","))
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
	if p.FrameRate != "" {
		args = append(args, "-r", p.FrameRate)
	}
	args = append(args, p.ExtraArgs...)
	return args
}

// Encoders ffmpeg can mux into MP4. Stream copy is excluded: the source
// container may carry codecs (WMV, AVI) that MP4 cannot hold.
var (
	mp4VideoEncoders = map[string]struct{}{
		"libx264": {}, "h264_nvenc": {}, "h264_qsv": {}, "h264_vaapi": {}, "h264_videotoolbox": {},
		"libx265": {}, "hevc_nvenc": {}, "hevc_qsv": {}, "hevc_vaapi": {}, "hevc_videotoolbox": {},
		"libaom-av1": {}, "libsvtav1": {}, "mpeg4": {},
	}
	mp4AudioEncoders = map[string]struct{}{
		"aac": {}, "libfdk_aac": {}, "libmp3lame": {}, "libopus": {}, "ac3": {},
	}
)

// ErrIncompatiblePreset is returned for presets whose codecs cannot be stored as video/mp4.
var ErrIncompatiblePreset = errors.New("preset is not mp4 compatible")

// Validate checks that the preset yields an MP4 the store can label video/mp4.
// Empty codecs leave the choice to ffmpeg's mp4 muxer defaults.
func (p Preset) Validate() error {
	if p.VideoCodec != "" {
		if _, ok := mp4VideoEncoders[p.VideoCodec]; !ok {
			return fmt.Errorf("%w: %s: video codec %q", ErrIncompatiblePreset, p.Name, p.VideoCodec)
		}
	}
	if p.AudioCodec != "" {
		if _, ok := mp4AudioEncoders[p.AudioCodec]; !ok {
			return fmt.Errorf("%w: %s: audio codec %q", ErrIncompatiblePreset, p.Name, p.AudioCodec)
		}
	}
	for i, arg := range p.ExtraArgs {
		if arg == "-f" && i+1 < len(p.ExtraArgs) && p.ExtraArgs[i+1] != "mp4" {
			return fmt.Errorf("%w: %s: output format %q", ErrIncompatiblePreset, p.Name, p.ExtraArgs[i+1])
		}
	}
	return nil
}

// PresetLibrary holds the named transcode presets, always including DefaultPreset.
type PresetLibrary struct {
	presets map[string]Preset
}

// NewPresetLibrary validates every preset and names it after its key.
func NewPresetLibrary(m map[string]Preset) (*PresetLibrary, error) {
	lib := &PresetLibrary{presets: map[string]Preset{DefaultPreset.Name: DefaultPreset}}
	for name, p := range m {
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		lib.presets[name] = p
	}
	return lib, nil
}

// Get retrieves a preset by name.
func (l *PresetLibrary) Get(name string) (Preset, bool) {
	if l == nil {
		return Preset{}, false
	}
	p, ok := l.presets[name]
	return p, ok
}

// LoadPresetFile reads a `presets:` map from a YAML file and rejects the
// whole file if any preset cannot produce MP4.
func LoadPresetFile(path string) (*PresetLibrary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("load preset file: %w", err)
	}

	var file struct {
		Presets map[string]Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}

	lib, err := NewPresetLibrary(file.Presets)
	if err != nil {
		return nil, fmt.Errorf("preset file %s: %w", path, err)
	}
	return lib, nil
}

// ResolvePreset picks the named preset, reading file when it is set.
func ResolvePreset(file, name string) (Preset, error) {
	lib := &PresetLibrary{presets: map[string]Preset{DefaultPreset.Name: DefaultPreset}}
	if strings.TrimSpace(file) != "" {
		loaded, err := LoadPresetFile(file)
		if err != nil {
			return Preset{}, err
		}
		lib = loaded
	}
	preset, ok := lib.Get(name)
	if !ok {
		return Preset{}, fmt.Errorf("unknown transcode preset %q", name)
	}
	return preset, nil
}
