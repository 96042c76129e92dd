// Package ui is the terminal storefront built on bubbletea.
//
// The model never mutates shop state itself. Every action calls a session,
// cart or checkout method in a tea.Cmd, and the view re-reads store
// snapshots on a one second tick, so background cart refreshes show up
// without extra plumbing.
//
// Views: catalog (1), cart (2), checkout (c), login with MFA (l), assistant
// chat (a) and the activity log (v). Press ? for the full key list.
package ui
