package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spatialmeet/cli/internal/presence"
	"github.com/spatialmeet/cli/internal/room"
)

const (
	canvasCols = 56
	canvasRows = 18

	moveStep  = 2.5
	toastTTL  = 4 * time.Second
	maxToasts = 3
)

type noticeMsg room.Notice

type tickMsg time.Time

type toast struct {
	text    string
	expires time.Time
}

// RoomModel is the live room view: the 2-D canvas with avatars, the
// participant sidebar and the key help line.
type RoomModel struct {
	ctrl         *room.Controller
	toasts       []toast
	quitting     bool
	disconnected bool
}

func NewRoomModel(ctrl *room.Controller) RoomModel {
	return RoomModel{ctrl: ctrl}
}

// RunRoom runs the room view until the user leaves or the connection is
// lost for good.
func RunRoom(ctrl *room.Controller) error {
	p := tea.NewProgram(NewRoomModel(ctrl), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m RoomModel) Init() tea.Cmd {
	return tea.Batch(m.waitForNotice(), tick())
}

func (m RoomModel) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg(<-m.ctrl.Notices())
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m RoomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case noticeMsg:
		return m.handleNotice(room.Notice(msg))

	case tickMsg:
		now := time.Now()
		kept := m.toasts[:0]
		for _, t := range m.toasts {
			if t.expires.After(now) {
				kept = append(kept, t)
			}
		}
		m.toasts = kept
		return m, tick()
	}

	return m, nil
}

func (m RoomModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	local := m.ctrl.Local()
	pos := local.Position

	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.ctrl.UpdateLocalPosition(pos.X, pos.Y-moveStep)
	case "down", "j":
		m.ctrl.UpdateLocalPosition(pos.X, pos.Y+moveStep)
	case "left", "h":
		m.ctrl.UpdateLocalPosition(pos.X-moveStep, pos.Y)
	case "right", "l":
		m.ctrl.UpdateLocalPosition(pos.X+moveStep, pos.Y)

	case "m":
		enabled := !local.Audio.MicrophoneEnabled
		m.ctrl.UpdateLocalAudio(presence.AudioChange{MicrophoneEnabled: &enabled})
	case "s":
		enabled := !local.Audio.SpeakerEnabled
		m.ctrl.UpdateLocalAudio(presence.AudioChange{SpeakerEnabled: &enabled})
	case "+", "=":
		vol := min(local.Audio.Volume+10, 100)
		m.ctrl.UpdateLocalAudio(presence.AudioChange{Volume: &vol})
	case "-":
		vol := max(local.Audio.Volume-10, 0)
		m.ctrl.UpdateLocalAudio(presence.AudioChange{Volume: &vol})
	}

	return m, nil
}

func (m RoomModel) handleNotice(n room.Notice) (tea.Model, tea.Cmd) {
	switch n.Kind {
	case room.NoticeUserJoined:
		m.addToast(fmt.Sprintf("%s joined the room", n.DisplayName))
	case room.NoticeUserLeft:
		name := n.DisplayName
		if name == "" {
			name = "A participant"
		}
		m.addToast(fmt.Sprintf("%s left the room", name))
	case room.NoticeReconnecting:
		m.addToast("Connection lost, reconnecting...")
	case room.NoticeDisconnected:
		m.disconnected = true
		m.quitting = true
		return m, tea.Quit
	}
	return m, m.waitForNotice()
}

func (m *RoomModel) addToast(text string) {
	m.toasts = append(m.toasts, toast{text: text, expires: time.Now().Add(toastTTL)})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
}

// Disconnected reports whether the view exited because the connection was
// lost rather than by user request.
func (m RoomModel) Disconnected() bool {
	return m.disconnected
}

func (m RoomModel) View() string {
	if m.quitting {
		return ""
	}

	r := m.ctrl.Room()
	if r == nil {
		return ""
	}
	participants := m.ctrl.Snapshot()
	localID := m.ctrl.Local().ID

	header := TitleStyle.Render(fmt.Sprintf("%s  %s  (%d in room)",
		r.Name, MutedStyle.Render("#"+r.RoomCode), len(participants)))

	canvas := m.renderCanvas(participants, localID)
	sidebar := m.renderSidebar(participants, localID)
	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, " ", sidebar)

	help := MutedStyle.Render("arrows/hjkl move • m mic • s speaker • +/- volume • q leave")

	lines := []string{header, body, help}
	for _, t := range m.toasts {
		lines = append(lines, MutedStyle.Render(IconInfo+" "+t.text))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderCanvas paints the 2-D room, one styled rune per avatar, scaled from
// the canonical [0,100] range into the character grid.
func (m RoomModel) renderCanvas(participants []presence.Participant, localID int64) string {
	type cell struct {
		ch    string
		style lipgloss.Style
	}
	grid := make(map[[2]int]cell)

	for _, p := range participants {
		col := int(p.Position.X / 100 * float64(canvasCols-1))
		row := int(p.Position.Y / 100 * float64(canvasRows-1))

		ch := "●"
		style := lipgloss.NewStyle().Foreground(Secondary)
		if p.ID == localID {
			style = lipgloss.NewStyle().Foreground(Primary).Bold(true)
		} else if p.DisplayName != "" {
			ch = strings.ToUpper(string([]rune(p.DisplayName)[0]))
		}
		grid[[2]int{row, col}] = cell{ch: ch, style: style}
	}

	var b strings.Builder
	for row := 0; row < canvasRows; row++ {
		for col := 0; col < canvasCols; col++ {
			if c, ok := grid[[2]int{row, col}]; ok {
				b.WriteString(c.style.Render(c.ch))
			} else {
				b.WriteString(" ")
			}
		}
		if row < canvasRows-1 {
			b.WriteString("\n")
		}
	}

	return CanvasStyle.Render(b.String())
}

func (m RoomModel) renderSidebar(participants []presence.Participant, localID int64) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render("Participants"))
	b.WriteString("\n")

	for _, p := range participants {
		mic := IconMicOn
		if !p.Audio.MicrophoneEnabled {
			mic = IconMicOff
		}
		speaker := IconSpeaker
		if !p.Audio.SpeakerEnabled {
			speaker = IconMuted
		}

		name := p.DisplayName
		if p.ID == localID {
			name += " (You)"
		}
		b.WriteString(fmt.Sprintf("\n%s %s %s %d%%", mic, speaker, name, p.Audio.Volume))
	}

	return SidebarStyle.Render(b.String())
}
