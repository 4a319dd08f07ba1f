package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jamroom",
	Short: "Real-time music collaboration server",
	Long: `Serves projects over HTTP, relays live edits between collaborators
over websockets and renders projects to MIDI, WAV and MP3.`,
	SilenceUsage: true,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
