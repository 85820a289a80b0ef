// Package ui implements the interactive study reader using bubbletea's Elm architecture.
//
// The reader has three views:
//  1. [ModuleListView] : Every module with its completion percentage, ★ for finished ones
//  2. [ReaderView] : One submodule at a time with a progress bar for the module
//  3. [CompleteView] : Shown when the last submodule of the last module is reached
//
// The [Model] implements bubbletea's Init/Update/View pattern. Store calls run as [tea.Cmd]s
// and report back through the [Msg] union. A failed save keeps the reader where it was and
// shows a warning so the user can retry.
//
// Keyboard navigation uses vim-style bindings with contextual help from charmbracelet/bubbles/help.
package ui
