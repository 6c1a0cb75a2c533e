// Package translate turns ordered text units into translated units through a
// pluggable collaborator.
//
// A Batcher splits units into fixed-size chunks, pauses between chunks to stay
// under remote rate limits, and never fails as a whole: a unit whose
// translation errors, comes back empty, or comes back unchanged keeps its
// original text. The output always has one element per input unit, in input
// order, which is what lets the subtitle codec put the text back on the right
// timing line.
//
// Repairer patches a fixed set of mojibake sequences that some translation
// backends emit for accented Latin text. It is a best-effort table lookup,
// not a charset detector.
package translate
