// Package reader opens PDF files and resolves their objects.
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// [OpenBytes] reads a document held in memory and [NewReader] accepts any
// io.ReaderAt. Every cross-reference section is loaded, following /Prev
// through incremental updates, so the reader sees the newest version of
// each object. Objects stored in object streams are resolved
// transparently.
//
// Besides objects, the Reader exposes what an incremental writer needs:
// [Reader.StartXRef], [Reader.UsesXRefStream], the merged trailer and the
// catalog reference from [Reader.RootRef].
package reader
