// Package render turns a project into MIDI, WAV or MP3 files. Audio comes
// from external tools: fluidsynth for WAV and ffmpeg for MP3.
package render

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/midi"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

var ErrToolMissing = errors.New("render tool not installed")

type Config struct {
	Dir        string
	Soundfont  string
	Fluidsynth string
	FFmpeg     string
	Log        *zap.Logger
}

type runner func(ctx context.Context, name string, args ...string) error

type Renderer struct {
	cfg      Config
	run      runner
	lookPath func(string) (string, error)
}

func New(cfg Config) *Renderer {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Fluidsynth == "" {
		cfg.Fluidsynth = "fluidsynth"
	}
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = "ffmpeg"
	}
	return &Renderer{cfg: cfg, run: execute, lookPath: exec.LookPath}
}

func execute(ctx context.Context, name string, args ...string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			return errors.Wrapf(err, "%s failed", filepath.Base(name))
		}
		return errors.Wrapf(err, "%s failed: %s", filepath.Base(name), msg)
	}
	return nil
}

// MIDI returns the serialized project.
func (r *Renderer) MIDI(p model.Project) ([]byte, error) {
	return midi.Encode(p)
}

func (r *Renderer) tool(name string) (string, error) {
	path, err := r.lookPath(name)
	if err != nil {
		return "", errors.Wrapf(ErrToolMissing, "%s is not installed or not in PATH", name)
	}
	return path, nil
}

// WAV renders the project through fluidsynth and returns the path of the
// audio file. Every call writes its own files, so overlapping exports of one
// project never share a path. The intermediate MIDI file is always removed.
func (r *Renderer) WAV(ctx context.Context, p model.Project) (string, error) {
	fluidsynth, err := r.tool(r.cfg.Fluidsynth)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "could not create export dir")
	}

	data, err := r.MIDI(p)
	if err != nil {
		return "", err
	}
	midPath, err := r.writeTemp(p.ID+"-*.mid", data)
	if err != nil {
		return "", err
	}
	defer remove(midPath)

	wavPath, err := r.writeTemp(p.ID+"-*.wav", nil)
	if err != nil {
		return "", err
	}
	args := []string{"-F", wavPath, "-i", midPath}
	if r.cfg.Soundfont != "" {
		if _, err := os.Stat(r.cfg.Soundfont); err == nil {
			args = append(args, r.cfg.Soundfont)
		} else {
			r.cfg.Log.Warn("soundfont not found, rendering without it", zap.String("path", r.cfg.Soundfont))
		}
	}
	if err := r.run(ctx, fluidsynth, args...); err != nil {
		remove(wavPath)
		return "", errors.Wrap(err, "WAV export requires FluidSynth and a soundfont")
	}
	if !written(wavPath) {
		remove(wavPath)
		return "", errors.New("WAV file was not created")
	}
	return wavPath, nil
}

// MP3 renders a WAV first and encodes it with ffmpeg. The WAV is removed
// afterwards, and on failure no partial MP3 is left behind.
func (r *Renderer) MP3(ctx context.Context, p model.Project) (string, error) {
	ffmpeg, err := r.tool(r.cfg.FFmpeg)
	if err != nil {
		return "", err
	}
	wavPath, err := r.WAV(ctx, p)
	if err != nil {
		return "", errors.Wrap(err, "could not create WAV file")
	}
	defer remove(wavPath)

	mp3Path, err := r.writeTemp(p.ID+"-*.mp3", nil)
	if err != nil {
		return "", err
	}
	err = r.run(ctx, ffmpeg, "-y", "-loglevel", "error", "-i", wavPath, "-codec:a", "libmp3lame", "-b:a", "192k", mp3Path)
	if err == nil && !written(mp3Path) {
		err = errors.New("MP3 file was not created by ffmpeg")
	}
	if err != nil {
		remove(mp3Path)
		return "", errors.Wrap(err, "MP3 export failed")
	}
	return mp3Path, nil
}

// writeTemp creates a uniquely named file in the export dir holding data.
func (r *Renderer) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(r.cfg.Dir, pattern)
	if err != nil {
		return "", errors.Wrap(err, "could not create export file")
	}
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		remove(f.Name())
		return "", errors.Wrap(err, "could not write export file")
	}
	return f.Name(), nil
}

// written reports whether a tool left a non-empty file at path.
func written(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func remove(path string) {
	_ = os.Remove(path)
}
