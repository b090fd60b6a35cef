// Package whisper shells out to the whisper command-line engine and parses
// the JSON it produces into transcripts.
package whisper
