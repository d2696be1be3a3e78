// ABOUTME: Waveform package documentation
// ABOUTME: Describes thumbnail bins and display folding
// Package waveform reduces decoded audio to a compact min/max thumbnail.
//
// Each bin covers SamplesPerBin frames of one channel. The TUI folds bins
// into terminal columns with Resize.
package waveform
