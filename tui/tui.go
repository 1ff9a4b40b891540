package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"somaradio/config"
	"somaradio/model"
	"somaradio/nowplaying"
	"somaradio/player"
)

const (
	refreshInterval = 500 * time.Millisecond
	volumeStep      = 0.05
)

// KeyMap holds the key bindings of both views
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Toggle    key.Binding
	VolUp     key.Binding
	VolDown   key.Binding
	Mute      key.Binding
	Reload    key.Binding
	Stations  key.Binding
	Back      key.Binding
	ForceQuit key.Binding
}

// ShortHelp is the one-line help shown under the player
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Stations, k.VolUp, k.VolDown, k.Mute, k.Reload, k.Back}
}

// FullHelp groups every binding by column
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Stations},
		{k.Toggle, k.VolUp, k.VolDown, k.Mute, k.Reload, k.Back},
	}
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "tune in"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("Space", "play/stop"),
	),
	VolUp: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+", "vol+"),
	),
	VolDown: key.NewBinding(
		key.WithKeys("-", "_"),
		key.WithHelp("-", "vol-"),
	),
	Mute: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "mute"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Stations: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stations"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "quit/back"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}

var (
	primaryColor = lipgloss.Color("#7C3AED")
	accentColor  = lipgloss.Color("#F59E0B")
	textColor    = lipgloss.Color("#CDD6F4")
	dimTextColor = lipgloss.Color("#6C7086")
	playingColor = lipgloss.Color("#A6E3A1")

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	trackStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Bold(true)

	historyStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	liveStyle = lipgloss.NewStyle().
			Foreground(playingColor).
			Bold(true)

	stationItemStyle = lipgloss.NewStyle().
				Foreground(textColor)

	stationSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#1E1E2E")).
				Background(primaryColor).
				Bold(true).
				Padding(0, 1)

	stationPlayingStyle = lipgloss.NewStyle().
				Foreground(playingColor).
				Bold(true)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(dimTextColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8"))

	volumeStyle = lipgloss.NewStyle().
			Foreground(accentColor)
)

// NowPlayingSource is polled for the latest rendered track list
type NowPlayingSource interface {
	Current() nowplaying.Display
}

// SaveFunc persists the settings the UI changes
type SaveFunc func(cfg config.Config) error

// Model is the player view with the station picker modal on top
type Model struct {
	logger     *zap.Logger
	player     player.Player
	nowPlaying NowPlayingSource
	stations   []model.Station
	keys       KeyMap
	spinner    spinner.Model
	cfg        config.Config
	save       SaveFunc

	width  int
	height int

	status       player.Status
	display      nowplaying.Display
	errorMessage string

	picking bool
	cursor  int
}

// NewModel builds the UI around p. save persists settings after each change.
func NewModel(logger *zap.Logger, p player.Player, np NowPlayingSource, cfg config.Config, save SaveFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = volumeStyle

	m := Model{
		logger:     logger,
		player:     p,
		nowPlaying: np,
		stations:   cfg.StationList(),
		keys:       DefaultKeyMap,
		spinner:    sp,
		cfg:        cfg,
		save:       save,
	}
	m.refresh()
	return m
}

type tickMsg time.Time

type actionResultMsg struct {
	action string
	err    error
}

type savedMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner and the status refresh tick
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionResultMsg:
		m.refresh()
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			return m, nil
		}
		return m, m.saveConfig()

	case savedMsg:
		if msg.err != nil {
			m.logger.Warn("Failed to save config", zap.Error(msg.err))
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Sequence(m.saveConfig(), tea.Quit)
		}
		m.errorMessage = ""
		if m.picking {
			return m.handlePickerKeys(msg)
		}
		return m.handlePlayerKeys(msg)
	}

	return m, nil
}

func (m Model) handlePlayerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, m.run("playback", m.player.TogglePlay)

	case key.Matches(msg, m.keys.VolUp):
		return m.setVolume(m.player.Volume() + volumeStep)

	case key.Matches(msg, m.keys.VolDown):
		return m.setVolume(m.player.Volume() - volumeStep)

	case key.Matches(msg, m.keys.Mute):
		m.player.ToggleMute()
		m.refresh()
		return m, m.saveConfig()

	case key.Matches(msg, m.keys.Reload):
		if m.status.Station.IsZero() {
			return m, nil
		}
		return m, m.run("reload", m.player.Reload)

	case key.Matches(msg, m.keys.Stations):
		m.picking = true
		m.cursor = max(model.StationIndex(m.stations, m.status.Station.ID), 0)
		return m, nil

	case key.Matches(msg, m.keys.Back):
		return m, tea.Sequence(m.saveConfig(), tea.Quit)

	// digits set the volume in tenths
	case len(msg.String()) == 1 && msg.String() >= "0" && msg.String() <= "9":
		return m.setVolume(float64(msg.String()[0]-'0') / 10)
	}

	return m, nil
}

func (m Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.stations)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		m.picking = false
		if m.cursor < 0 || m.cursor >= len(m.stations) {
			return m, nil
		}
		station := m.stations[m.cursor]
		// Picking the station that is already tuned in keeps it playing.
		if station.ID == m.status.Station.ID {
			return m, nil
		}
		p := m.player
		return m, m.run("tune in", func() error {
			return p.LoadStation(station)
		})

	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Stations):
		m.picking = false
		return m, nil
	}

	return m, nil
}

func (m Model) setVolume(v float64) (tea.Model, tea.Cmd) {
	m.player.SetVolume(v)
	m.refresh()
	return m, m.saveConfig()
}

// run performs a player action off the update loop
func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{action: action, err: fn()}
	}
}

func (m *Model) refresh() {
	m.status = m.player.Status()
	if m.nowPlaying != nil {
		m.display = m.nowPlaying.Current()
	}
}

func (m Model) saveConfig() tea.Cmd {
	if m.save == nil {
		return nil
	}
	cfg := m.cfg
	if !m.status.Station.IsZero() {
		cfg.LastStationID = m.status.Station.ID
	}
	cfg.Volume = m.status.Volume
	cfg.Muted = m.status.Muted
	save := m.save
	return func() tea.Msg {
		return savedMsg{err: save(cfg)}
	}
}

// currentDisplay drops a display left over from the previous station
func (m Model) currentDisplay() (nowplaying.Display, bool) {
	if m.display.StationID == "" || m.display.StationID != m.status.Station.ID {
		return nowplaying.Display{}, false
	}
	return m.display, true
}

func (m Model) View() string {
	var b strings.Builder

	name := m.status.Station.Name
	if name == "" {
		name = nowplaying.FallbackTitle
	}
	b.WriteString(fmt.Sprintf("%s  %s  %s\n", titleStyle.Render("📻 "+name), m.renderState(), m.renderVolume()))
	b.WriteString(strings.Repeat("─", 40) + "\n")

	if m.picking {
		b.WriteString(m.renderPicker())
	} else {
		b.WriteString(m.renderNowPlaying())
	}

	if m.errorMessage != "" {
		b.WriteString(errorStyle.Render("✗ "+m.errorMessage) + "\n")
	}

	if m.picking {
		b.WriteString(statusStyle.Render("↑↓ choose  Enter tune in  Esc back"))
	} else {
		b.WriteString(statusStyle.Render("Space play/stop  s stations  +- volume  m mute  r reload  Esc quit"))
	}
	return b.String()
}

func (m Model) renderState() string {
	switch {
	case m.status.Station.IsZero():
		return statusStyle.Render("no station")
	case m.status.Loading:
		return m.spinner.View() + statusStyle.Render(" loading")
	case m.status.State == player.StateRecovering.String():
		return m.spinner.View() + statusStyle.Render(" reconnecting")
	case m.status.Playing:
		return liveStyle.Render("● LIVE")
	default:
		return statusStyle.Render("■ STOPPED")
	}
}

func (m Model) renderVolume() string {
	vol := int(m.status.Volume*100 + 0.5)
	if m.status.Muted {
		return statusStyle.Render(fmt.Sprintf("🔇 %d%%", vol))
	}
	return volumeStyle.Render(fmt.Sprintf("🔊 %d%%", vol))
}

func (m Model) renderNowPlaying() string {
	var lines []string

	d, ok := m.currentDisplay()
	switch {
	case !ok:
		title := m.status.Station.Name
		if title == "" {
			title = nowplaying.FallbackTitle
		}
		lines = append(lines, trackStyle.Render("♪ "+title))
	case d.Failed():
		lines = append(lines, trackStyle.Render("♪ "+d.Title))
		lines = append(lines, historyStyle.Render(d.Placeholder))
	default:
		lines = append(lines, trackStyle.Render("♪ "+d.Title))
		if d.Current != nil && d.Current.Album != "" {
			lines = append(lines, historyStyle.Render("  "+d.Current.Album))
		}
		if len(d.History) > 0 {
			lines = append(lines, "", statusStyle.Render("Recently played"))
			for _, t := range d.History[:min(len(d.History), m.maxHistoryLines())] {
				lines = append(lines, historyStyle.Render("  "+t.String()))
			}
		}
	}

	return strings.Join(lines, "\n") + "\n"
}

func (m Model) maxHistoryLines() int {
	if m.height <= 0 {
		return nowplaying.DefaultHistorySize
	}
	return max(m.height-8, 1)
}

func (m Model) renderPicker() string {
	var lines []string
	for i, station := range m.stations {
		isSelected := i == m.cursor
		isPlaying := station.ID == m.status.Station.ID

		prefix := "  "
		if isPlaying {
			prefix = "▶ "
		}
		text := prefix + station.Name

		switch {
		case isSelected:
			lines = append(lines, stationSelectedStyle.Render(text))
		case isPlaying:
			lines = append(lines, stationPlayingStyle.Render(text))
		default:
			lines = append(lines, stationItemStyle.Render(text))
		}
	}
	return modalStyle.Render(strings.Join(lines, "\n")) + "\n"
}

// NewProgram wraps m in a full-screen program
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}
