// Package transcript models segmented transcripts and renders them into
// the five supported output encodings.
package transcript
