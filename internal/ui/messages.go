package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickFPS drives the frame coordinator. 30 ticks per second keeps scrolling
// smooth without saturating slow terminals.
const tickFPS = 30

type tickMsg time.Time
type playbackEndedMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/tickFPS, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
