package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/midi"
)

var (
	inspectFrom  uint32
	inspectLimit int
	inspectOut   string
)

func init() {
	inspectCmd.Flags().Uint32Var(&inspectFrom, "from", 0, "start the excerpt at this tick")
	inspectCmd.Flags().IntVar(&inspectLimit, "limit", 0, "keep at most this many note events per track")
	inspectCmd.Flags().StringVar(&inspectOut, "out", "", "also write the excerpt to this file")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Prints the tempos and notes of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := midi.ReadMidiFile(args[0])
		if err != nil {
			return err
		}
		if inspectFrom > 0 || inspectLimit > 0 {
			s = midi.Excerpt(s, inspectFrom, inspectLimit)
		}
		if inspectOut != "" {
			if err := s.WriteFile(inspectOut); err != nil {
				return errors.Wrap(err, "could not write excerpt")
			}
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%d tracks, %v\n", len(s.Tracks), s.TimeFormat)
		for i, track := range midi.Summarize(s) {
			fmt.Fprintf(w, "track %d: %d notes\n", i, len(track.Notes))
			for _, bpm := range track.Tempos {
				fmt.Fprintf(w, "  tempo %.2f bpm\n", bpm)
			}
			for _, note := range track.Notes {
				fmt.Fprintf(w, "  %v\n", note)
			}
		}
		return nil
	},
}
