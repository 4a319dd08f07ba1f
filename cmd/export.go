package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/config"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/logging"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/render"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <project.json> <out.mid|out.wav|out.mp3>",
	Short: "Renders a project document to a file",
	Long: `Renders a project document to a file. The extension of the output
picks the format. WAV and MP3 need fluidsynth and ffmpeg.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := readProject(args[0])
		if err != nil {
			return err
		}
		return export(cmd, p, args[1])
	},
}

func readProject(path string) (model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Project{}, errors.Wrap(err, "could not read project")
	}
	var p model.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Project{}, errors.Wrapf(err, "could not decode %s", path)
	}
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

func export(cmd *cobra.Command, p model.Project, out string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	r := render.New(render.Config{
		Dir:        cfg.ExportDir,
		Soundfont:  cfg.SoundfontPath,
		Fluidsynth: cfg.FluidsynthBin,
		FFmpeg:     cfg.FFmpegBin,
		Log:        log,
	})

	var rendered string
	switch ext := strings.ToLower(filepath.Ext(out)); ext {
	case ".mid", ".midi":
		data, err := r.MIDI(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return errors.Wrap(err, "could not write midi")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
		return nil
	case ".wav":
		rendered, err = r.WAV(cmd.Context(), p)
	case ".mp3":
		rendered, err = r.MP3(cmd.Context(), p)
	default:
		return errors.Errorf("unsupported output format %q", ext)
	}
	if err != nil {
		return err
	}
	if err := os.Rename(rendered, out); err != nil {
		return errors.Wrap(err, "could not move rendered file")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}
