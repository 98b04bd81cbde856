// Package core provides the PDF object layer: object types, a lexer and
// parser, cross-reference sections, object streams and a serializer.
//
// # Object Types
//
// Every PDF object satisfies the [Object] interface:
//
//   - [Null], [Bool], [Int], [Real]
//   - [String] holds raw bytes, whether written literal or hexadecimal
//   - [Name] holds the name without its leading slash
//   - [Array] and [Dict]
//   - [Stream] pairs a dictionary with still-encoded data
//   - [IndirectRef] points at an indirect object
//
// # Parsing
//
// [Lexer] splits input into tokens and [Parser] builds objects from them.
// [Parser.ParseIndirectObject] reads "n g obj ... endobj" including stream
// data; a [ReferenceResolver] is needed when a stream's /Length is indirect.
//
// # Cross-Reference Sections
//
// [XRefParser] reads classic tables, cross-reference streams and hybrid
// files, and follows /Prev links through incremental updates.
// [MergeXRefTables] folds the sections into one view where newer entries
// win. Objects stored in object streams are read through [ObjectStream].
//
// # Writing
//
// [WriteObject] and [WriteIndirectObject] serialize objects with sorted
// dictionary keys. [EncodeTextString] and [DecodeTextString] convert
// between Go strings and PDF text strings.
package core
