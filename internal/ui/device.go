package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// DevicePanel writes device-code prompts to a terminal as a bordered panel.
type DevicePanel struct {
	mu sync.Mutex
	w  io.Writer
}

// NewDevicePanel creates a [DevicePanel] writing to w.
func NewDevicePanel(w io.Writer) *DevicePanel {
	return &DevicePanel{w: w}
}

// DisplayDeviceCode renders message, the user code and where to enter it.
func (p *DevicePanel) DisplayDeviceCode(message, userCode, verificationURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, RenderDeviceCode(message, userCode, verificationURL))
}

// RenderDeviceCode returns the panel [DevicePanel] prints.
func RenderDeviceCode(message, userCode, verificationURL string) string {
	rows := []string{styles.title.Render("Sign in on another device")}
	if message != "" {
		rows = append(rows, message, "")
	}
	rows = append(rows,
		"Open "+styles.warn.Render(verificationURL)+" and enter:",
		styles.code.Render(userCode),
	)
	return styles.box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
