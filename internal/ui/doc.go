// Package ui renders the terminal side of a sign-in attempt with charmbracelet's lipgloss and bubbletea.
//
//  1. [DevicePanel] : boxed device-code prompt, used when the browser redirect is unavailable
//  2. [WaitModel] : spinner shown while the browser round trip is in flight
//  3. [AttemptTable] : history listing of recorded attempts
//
// The [WaitModel] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// It waits on the flow's pending result in a command, so the view stays responsive until the result settles.
package ui
