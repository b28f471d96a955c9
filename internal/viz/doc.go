// Package viz renders runs in the terminal.
//
//   - [RenderSummary]: the derived parameters of a configured experiment
//   - [PlotThermo]: asciigraph plots of a stored thermodynamics file
//   - [Live]: a Bubble Tea view that follows a run while it steps
//   - [Canvas]: Braille pixel canvas used for the particle projection
//
// # Key Bindings
//
//	Space - Freeze/follow the display (the run keeps stepping)
//	A     - Cycle the projection axis
//	T     - Cycle color themes
//	?     - Show help overlay
//	Q     - Cancel the run and quit
package viz
