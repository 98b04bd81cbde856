// Package loader reads the editable state of a PDF: its page label table
// and its outline.
//
// [Loader.Load] never fails with an error value. Failures are reported in
// the [Result] as the user-visible message, because the caller shows them
// as they are. A document without /PageLabels reads as a single decimal
// range at page 0. An outline whose destinations cannot all be mapped to a
// page of the document is dropped with the message "This outline is too
// complex for me.", while the labels are still returned.
//
// [Input] holds the current input path for an editing session, performs
// reads and seeds a model.Document from them.
package loader
