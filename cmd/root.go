package cmd

import (
	"os"
	"os/signal"

	"github.com/spatialmeet/cli/internal/ui"
	"github.com/spatialmeet/cli/internal/version"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "spatialmeet",
	Short:   "Terminal client for SpatialMeet spatial audio rooms",
	Long:    `SpatialMeet is a terminal client for SpatialMeet servers. Sign in, browse rooms, and join a shared 2-D canvas where every participant appears as an avatar: move around with the keyboard and toggle your microphone and speaker, with everyone's state synchronized in real time.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDomain, "domain", "d", "", "Custom server domain")
	rootCmd.PersistentFlags().BoolVar(&flagInsecure, "insecure", false, "Use http/ws instead of https/wss")
}
