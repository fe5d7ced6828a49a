package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spatialmeet/cli/internal/api"
)

// RenderRoomTable prints the public room list.
func RenderRoomTable(rooms []api.Room) {
	if len(rooms) == 0 {
		fmt.Println(MutedStyle.Render("No rooms available. Create one with 'spatialmeet rooms create'."))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Name", "Description", "Code", "Participants"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Description", WidthMax: 40},
		{Name: "Participants", Align: text.AlignRight},
	})

	for _, r := range rooms {
		desc := r.Description
		if desc == "" {
			desc = "-"
		}
		t.AppendRow(table.Row{
			r.ID,
			r.Name,
			desc,
			r.RoomCode,
			fmt.Sprintf("%d/%d", r.CurrentParticipants, r.MaxParticipants),
		})
	}

	t.Render()
}

// RenderRoomCreated prints the summary box for a freshly created room.
func RenderRoomCreated(room *api.Room) {
	content := fmt.Sprintf("%s Room created!\n\nName:  %s\nCode:  %s\nJoin:  spatialmeet join %d",
		IconSuccess,
		BoldStyle.Render(room.Name),
		BoldStyle.Foreground(Primary).Render(room.RoomCode),
		room.ID,
	)
	fmt.Println(BoxStyle.Render(content))
}
