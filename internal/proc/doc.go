// Package proc hosts the agent CLI processes behind a small interface.
// A Host spawns a command on a pseudo-terminal and reports output and
// exit through callbacks; a ShellResolver picks the shell a command
// line runs under; an ExitPolicy decides whether a finished process
// should close its pane or stay visible for inspection.
package proc
