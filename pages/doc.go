// Package pages reads the document catalog and the page tree.
//
// [Catalog] gives typed access to the catalog entries this module edits:
// /Pages, /PageLabels, /Outlines and the named destination tables.
// [PageTree] flattens /Pages into document order and remembers the object
// reference of each [Page], so an outline destination that points at a
// page object can be turned into a page index with [PageTree.IndexOf].
//
// Inheritable attributes such as /MediaBox, /CropBox and /Rotate are
// looked up through every ancestor node, nearest first.
package pages
