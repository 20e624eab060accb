// Package viz renders compiled systems and finished runs for the terminal.
//
//   - [Readout]: the equations of a System grouped by parameter class
//   - [Plot]: asciigraph charts of one or more series
//   - [Canvas]: Braille pixel canvas used for phase portraits
//
// Colors come from a [Theme]; themes are selected by name.
package viz
