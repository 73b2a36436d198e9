// Package progress renders long waits and uploads for interactive use.
//
// Orchestration code receives a Factory and never touches the terminal.
// Terminal draws a uilive status line for waits and a pb bar for uploads;
// Nop discards everything.
package progress
