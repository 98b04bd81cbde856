// Package filters implements the stream filters needed to read cross-reference
// streams and object streams, and to write compressed cross-reference
// streams.
//
// FlateDecode and FlateEncode support the PNG predictors (10-15) used by
// cross-reference streams, and TIFF predictor 2 on the decode side.
// ASCIIHexDecode and ASCII85Decode undo the ASCII armour some producers put
// around binary streams. CCITTFaxDecode handles bi-level scans.
//
// Parameters come from the stream's /DecodeParms converted to plain Go
// values:
//
//	params := filters.Params{"Predictor": 12, "Columns": 5}
//	decoded, err := filters.FlateDecode(data, params)
package filters
