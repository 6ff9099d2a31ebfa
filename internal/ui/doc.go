// Package ui provides terminal output for the commsframe CLI.
//
// Components follow a "render once and exit" pattern: they draw styled
// output with Lipgloss (and a Bubbles table for decoded messages) but never
// wait for input, except Confirm which asks a single yes/no question.
//
//   - Header: command banner with ordered parameters
//   - MessageTable: a protocol.Handler collecting decoded messages
//   - Result: success, warning and failure boxes
//   - Printer: picks styled or plain output depending on whether the
//     writer is a terminal
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	tbl := &ui.MessageTable{}
//	n, err := frame.ProcessInputData(data, tbl)
//	_ = p.PrintTable(tbl)
//
// Logging is controlled separately through COMMSFRAME_LOG_LEVEL and is
// silent by default, so it does not interleave with this output.
package ui
