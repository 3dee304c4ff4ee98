package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Waiter is the pending side of a sign-in flow.
type Waiter interface {
	Wait(ctx context.Context) (string, error)
}

// WaitModel shows a spinner until the flow's result settles or the user cancels.
type WaitModel struct {
	ctx       context.Context
	result    Waiter
	signInURL string
	open      func() error
	spinner   spinner.Model
	help      help.Model
	keys      keyMap

	notice    string
	code      string
	err       error
	done      bool
	cancelled bool
}

// NewWaitModel creates a [WaitModel] for result. open, when set, reopens signInURL in the browser.
func NewWaitModel(ctx context.Context, result Waiter, signInURL string, open func() error) *WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.ok

	return &WaitModel{
		ctx:       ctx,
		result:    result,
		signInURL: signInURL,
		open:      open,
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Code returns the authorization code once the result resolved.
func (m *WaitModel) Code() string { return m.code }

// Err returns the error the result settled with.
func (m *WaitModel) Err() error { return m.err }

// Cancelled reports whether the user quit before the result settled.
func (m *WaitModel) Cancelled() bool { return m.cancelled }

// Init starts the spinner and the wait for the result.
func (m *WaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForResult())
}

// Update handles incoming messages and updates the model state.
func (m *WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.open) && m.open != nil:
			return m, m.reopen()
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgSettled:
			data := msg.data.(settled)
			m.code, m.err, m.done = data.code, data.err, true
			return m, tea.Quit
		case MsgOpened:
			if err, _ := msg.data.(error); err != nil {
				m.notice = styles.warn.Render(fmt.Sprintf("Could not open the browser: %v", err))
			} else {
				m.notice = styles.help.Render("Opened the sign-in page again.")
			}
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the spinner, the sign-in URL, and the result once settled.
func (m *WaitModel) View() string {
	if m.done {
		if m.err != nil {
			return styles.err.Render(fmt.Sprintf("Sign-in failed: %v", m.err)) + "\n"
		}
		return styles.ok.Render("✓ Authorization code received") + "\n"
	}
	if m.cancelled {
		return styles.warn.Render("Sign-in cancelled") + "\n"
	}

	view := fmt.Sprintf("%s Waiting for the browser to finish signing in...\n\n", m.spinner.View())
	if m.signInURL != "" {
		view += fmt.Sprintf("If no browser opened, visit:\n%s\n\n", styles.help.Render(m.signInURL))
	}
	if m.notice != "" {
		view += m.notice + "\n\n"
	}
	return view + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m *WaitModel) waitForResult() tea.Cmd {
	return func() tea.Msg {
		code, err := m.result.Wait(m.ctx)
		return settledMsg(code, err)
	}
}

func (m *WaitModel) reopen() tea.Cmd {
	return func() tea.Msg {
		return openedMsg(m.open())
	}
}
