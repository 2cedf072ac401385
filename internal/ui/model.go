package ui

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ldayton/waveview/internal/audio"
	"github.com/ldayton/waveview/internal/frame"
	"github.com/ldayton/waveview/internal/session"
	"github.com/ldayton/waveview/internal/util"
	"github.com/ldayton/waveview/internal/viewport"
)

// superSample is how many waveform image pixels back one terminal cell
// horizontally. Rendering above cell resolution and scaling down smooths the
// trace.
const superSample = 2

const seekStep = 5 * time.Second

var playheadColor = color.RGBA{R: 255, G: 214, B: 112, A: 255}

// Model is the Bubbletea model for the waveview TUI.
type Model struct {
	coord     *frame.Coordinator
	transport *audio.Transport
	machine   *session.Machine
	vp        *viewport.Viewport
	interp    *viewport.Interpolator
	meta      audio.Metadata

	view *ImageView
	spin spinner.Model
	zoom *zoomSpring

	width    int
	height   int
	frame    frame.Frame
	quitting bool
}

// New wires the model to its collaborators. Everything arrives through the
// constructor; the model owns no global state.
func New(coord *frame.Coordinator, transport *audio.Transport, machine *session.Machine, vp *viewport.Viewport, interp *viewport.Interpolator, meta audio.Metadata) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		coord:     coord,
		transport: transport,
		machine:   machine,
		vp:        vp,
		interp:    interp,
		meta:      meta,
		view:      NewImageView(),
		spin:      sp,
		zoom:      newZoomSpring(tickFPS, float64(vp.PixelsPerSecond())),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spin.Tick, checkDone(m.transport),
		tea.SetWindowTitle(m.meta.Title+" — waveview"))
}

func checkDone(t *audio.Transport) tea.Cmd {
	return func() tea.Msg {
		<-t.Done()
		return playbackEndedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if !m.zoom.settled() {
			m.vp.SetZoom(int(m.zoom.step()))
		}
		cols, rows := m.waveArea()
		m.frame = m.coord.Tick(cols*superSample, rows*2*superSample)
		return m, tickCmd()

	case playbackEndedMsg:
		m.interp.SetPlaying(false)
		m.machine.Set(session.Ready)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.transport.Close()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}
	switch msg.String() {
	case " ":
		m.togglePlayback()
	case "left", "h":
		m.seekBy(-seekStep)
	case "right", "l":
		m.seekBy(seekStep)
	case "+", "=":
		m.vp.ZoomIn()
		m.zoom.retarget(float64(m.vp.PixelsPerSecond()))
	case "-", "_":
		m.vp.ZoomOut()
		m.zoom.retarget(float64(m.vp.PixelsPerSecond()))
	}
	return m, nil
}

func (m *Model) togglePlayback() {
	switch m.machine.State() {
	case session.Playing:
		m.transport.Pause()
		m.interp.SetPlaying(false)
		m.machine.Set(session.Paused)
	case session.Ready, session.Paused:
		m.transport.Play()
		m.interp.SetPlaying(true)
		m.machine.Set(session.Playing)
	}
}

func (m *Model) seekBy(delta time.Duration) {
	target := m.transport.Position() + delta
	if target < 0 {
		target = 0
	}
	if target > m.transport.Duration() {
		target = m.transport.Duration()
	}
	m.transport.SeekTo(target)
	sec := target.Seconds()
	m.interp.Reset(sec)
	m.vp.OnSeek(sec)
}

// waveArea returns the terminal cell dimensions available for the waveform.
func (m Model) waveArea() (cols, rows int) {
	cols = m.width - 4
	if cols < 16 {
		cols = 16
	}
	rows = m.height - 8
	if rows < 4 {
		rows = 4
	}
	return cols, rows
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	cols, rows := m.waveArea()

	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("waveview") + "\n")
	b.WriteString("  " + titleStyle.Render(m.meta.Title))
	if m.meta.Artist != "" {
		b.WriteString("  " + artistStyle.Render(m.meta.Artist))
	}
	b.WriteString("\n\n")

	b.WriteString(m.waveView(cols, rows))
	b.WriteString("\n")

	pos := m.frame.PositionSeconds
	total := m.frame.DurationSeconds
	b.WriteString("  " + timeStyle.Render(util.FormatSeconds(pos)) + " " +
		renderProgressBar(pos, total, cols-14) + " " +
		timeStyle.Render(util.FormatSeconds(total)) + "\n")

	b.WriteString("  " + statusStyle.Render(m.statusLine()) + "\n")
	b.WriteString("  " + helpStyle.Render(helpText()) + "\n")
	return b.String()
}

// waveView renders the waveform area: the composited image, or a placeholder
// for the loading/error/empty states.
func (m Model) waveView(cols, rows int) string {
	switch m.frame.State {
	case session.Loading:
		return centered(cols, rows, m.spin.View()+" loading audio")
	case session.Errored:
		return centered(cols, rows, errorStyle.Render("failed to load audio"))
	case session.NoAudio:
		return centered(cols, rows, helpStyle.Render("no audio loaded"))
	}
	if m.frame.Image == nil {
		return centered(cols, rows, m.spin.View()+" rendering")
	}

	m.drawPlayhead()
	img := m.view.Render(m.frame.Image, cols, rows)
	var b strings.Builder
	for _, line := range strings.Split(img, "\n") {
		b.WriteString("  " + line + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// drawPlayhead overlays the playback position as a vertical line on this
// frame's composite. The composite is rebuilt every frame, so drawing on it
// never touches cached segments.
func (m Model) drawPlayhead() {
	start, end := m.vp.TimeRange()
	pos := m.frame.PositionSeconds
	if pos < start || pos >= end {
		return
	}
	img := m.frame.Image
	x := int((pos - start) / (end - start) * float64(img.Bounds().Dx()))
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		img.SetRGBA(x, y, playheadColor)
	}
}

func (m Model) statusLine() string {
	icon, text := "▶", "playing"
	switch m.frame.State {
	case session.Paused:
		icon, text = "❚❚", "paused"
	case session.Ready:
		icon, text = "■", "ready"
	}
	s := fmt.Sprintf("%s  %s  %dpx/s", icon, text, m.vp.PixelsPerSecond())
	if m.frame.Rendering {
		s += "  rendering…"
	}
	return s
}

func renderProgressBar(pos, total float64, width int) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if total > 0 {
		filled = int(pos / total * float64(width))
		if filled > width {
			filled = width
		}
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func centered(cols, rows int, s string) string {
	var b strings.Builder
	top := rows / 2
	for range top {
		b.WriteString("\n")
	}
	pad := (cols - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString("  " + strings.Repeat(" ", pad) + s)
	for range rows - top - 1 {
		b.WriteString("\n")
	}
	return b.String()
}
