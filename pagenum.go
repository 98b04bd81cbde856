// Package pagenum edits the page labels, outline and crop box of PDF files.
//
// For one-shot edits, use the fluent Editor:
//
//	err := pagenum.Open("book.pdf").
//	    Label(0, model.LabelRange{Style: model.StyleLowerRoman, Start: 1}).
//	    Label(12, model.LabelRange{Style: model.StyleDecimal, Start: 1}).
//	    To("book-numbered.pdf").
//	    Save(ctx)
//
// Interactive front ends use a Session, which keeps a live document,
// saves it in the background and tracks whether it is saved:
//
//	s := pagenum.NewSession(&pagenum.SessionOptions{OutputPath: "out.pdf"})
//	s.Open("book.pdf")
//	s.Document().Labels().SetStart(0, 3)
//	s.Saver().Save()
//
// The lower-level packages (model, loader, writer, saver, status) are also
// available.
package pagenum

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	res := pagenum.Must(pagenum.Open("document.pdf").Inspect())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
