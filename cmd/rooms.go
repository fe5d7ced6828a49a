package cmd

import (
	"fmt"

	"github.com/spatialmeet/cli/internal/api"
	"github.com/spatialmeet/cli/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagRoomName        string
	flagRoomDescription string
	flagMaxParticipants int
	flagRoomPrivate     bool
)

var roomsCmd = &cobra.Command{
	Use:     "rooms",
	Aliases: []string{"room"},
	Short:   "Browse and manage rooms",
}

var roomsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List public rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		creds, err := requireCredentials()
		if err != nil {
			return err
		}

		stopSpinner := ui.RunSpinner("Loading rooms...")
		defer stopSpinner()
		rooms, err := newAPIClient(cfg, creds).ListRooms(cmd.Context())
		if err != nil {
			return err
		}
		stopSpinner()

		ui.RenderRoomTable(rooms)
		return nil
	},
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room",
	Long: `Create a room on the server and print its join code.

Examples:
  spatialmeet rooms create --name "Standup" --max-participants 8
  spatialmeet rooms create --name "War room" --private`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagRoomName == "" {
			return fmt.Errorf("room name is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		creds, err := requireCredentials()
		if err != nil {
			return err
		}

		stopSpinner := ui.RunSpinner("Creating room...")
		defer stopSpinner()
		room, err := newAPIClient(cfg, creds).CreateRoom(cmd.Context(), api.CreateRoomRequest{
			Name:            flagRoomName,
			Description:     flagRoomDescription,
			MaxParticipants: flagMaxParticipants,
			Private:         flagRoomPrivate,
		})
		if err != nil {
			return err
		}
		stopSpinner()

		ui.RenderRoomCreated(room)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(roomsCmd)
	roomsCmd.AddCommand(roomsListCmd)
	roomsCmd.AddCommand(roomsCreateCmd)

	roomsCreateCmd.Flags().StringVarP(&flagRoomName, "name", "n", "", "Room name")
	roomsCreateCmd.Flags().StringVar(&flagRoomDescription, "description", "", "Room description")
	roomsCreateCmd.Flags().IntVar(&flagMaxParticipants, "max-participants", 10, "Participant capacity")
	roomsCreateCmd.Flags().BoolVar(&flagRoomPrivate, "private", false, "Hide the room from the public list")
}
