// Package writer saves page labels, an outline and a crop box into a copy
// of a PDF file.
//
// The input bytes are copied unchanged and an incremental update is
// appended: a rewritten catalog under its original object number, new
// outline item objects, rewritten page dictionaries when a crop box is set,
// and a cross-reference section chained to the previous one with /Prev.
// The new section uses the same form as the input's last one, a classic
// table or a compressed cross-reference stream.
//
// Basic usage:
//
//	w := writer.New(nil)
//	err := w.Write(ctx, "in.pdf", "out.pdf", false, doc.Snapshot())
//	if err != nil {
//	    fmt.Println(pdferr.Message(err))
//	}
package writer
