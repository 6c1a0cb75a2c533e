// Package srt decodes and encodes SubRip timed-text files.
//
// Decoding is best-effort: sequence lines start entries, the following line is
// kept verbatim as the timing token, and text lines run until the next blank
// or sequence line. Fragments without timing or text are dropped rather than
// reported. Encoding is the inverse, so Encode(Decode(x)) reproduces every
// well-formed entry token for token.
//
// Translation works on text units: one cleaned string per entry. Reassemble
// swaps translated units back in while keeping sequence and timing untouched.
// Multi-line entries come back as a single line after translation; no attempt
// is made to re-split them.
package srt
