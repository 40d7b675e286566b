// Package terminal renders a Message Center session in a terminal.
//
// [Surface] implements both messagecenter.View and messagecenter.Dialogs
// with lipgloss styles, and [Surface.Run] turns stdin lines into controller
// calls: dialog answers, chat messages, "/attach <path>" and "/quit".
package terminal
