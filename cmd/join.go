package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spatialmeet/cli/internal/room"
	"github.com/spatialmeet/cli/internal/rtc"
	"github.com/spatialmeet/cli/internal/ui"
	"github.com/spf13/cobra"
)

var flagNoPeerLinks bool

var joinCmd = &cobra.Command{
	Use:     "join <room-id|room-code>",
	Aliases: []string{"j"},
	Short:   "Join a room",
	Long: `Join a room and open the live canvas view.

Examples:
  spatialmeet join 42
  spatialmeet join K7KQ2P
  spatialmeet join 42 --turn turn:turn.example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(cmd.Context(), args[0])
	},
}

func joinRoom(ctx context.Context, target string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	creds, err := requireCredentials()
	if err != nil {
		return err
	}
	client := newAPIClient(cfg, creds)

	roomID, err := resolveRoom(ctx, client, target)
	if err != nil {
		return err
	}

	// Capacity is enforced server-side; warn early so a refusal is not a
	// surprise.
	if detail, err := client.GetRoom(ctx, roomID); err == nil && detail.AtCapacity() {
		ui.PrintWarningf("Room \"%s\" looks full (%d/%d), the server may refuse the join",
			detail.Name, detail.CurrentParticipants, detail.MaxParticipants)
	}

	ctrl := room.NewController(cfg, creds, client)
	if !flagNoPeerLinks {
		peers := rtc.NewManager(cfg, creds.UserID, ctrl.SendSignal, ctrl.ApplyPeerPosition)
		ctrl.SetPeerManager(peers)
	}

	stopSpinner := ui.RunConnectionSpinner("Joining room...")
	defer stopSpinner()
	joined, err := ctrl.Join(ctx, roomID)
	if err != nil {
		return err
	}
	stopSpinner()

	if err := ui.RunRoom(ctrl); err != nil {
		ctrl.Leave(context.Background())
		return err
	}

	if err := ctrl.Leave(context.Background()); err != nil {
		ui.PrintWarningf("Leave was not acknowledged by the server: %v", err)
	}
	if ctrl.State() == room.StateIdle {
		ui.PrintInfof("Left room \"%s\"", joined.Name)
	}
	return nil
}

// resolveRoom accepts a numeric room id or a room code and returns the id.
func resolveRoom(ctx context.Context, client roomFinder, target string) (int64, error) {
	if id, err := strconv.ParseInt(target, 10, 64); err == nil {
		return id, nil
	}

	rooms, err := client.ListRooms(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range rooms {
		if strings.EqualFold(r.RoomCode, target) {
			return r.ID, nil
		}
	}
	return 0, fmt.Errorf("no room with code %q", target)
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagNoPeerLinks, "no-peer-links", false, "Disable direct peer links, use server relay only")
}
