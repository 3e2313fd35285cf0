// Package document classifies point-of-sale XML artifacts and extracts the
// business fields each kind carries.
//
// Classification happens in two steps: ClassifyName looks only at the file name
// and the role of the folder it was dropped into, and ClassifyRoot maps the
// root tag of a parsed sales document. Load combines both with the field
// extraction rules so callers receive a ready-to-dispatch Document.
//
// Everything here is pure; no function touches the filesystem or the network.
package document
