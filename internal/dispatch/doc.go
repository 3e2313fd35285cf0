// Package dispatch sends classified documents to their destinations: the
// remote order service (Reporter) and object storage (Archiver).
//
// Neither dispatcher retries. A failed call is returned classified as
// services.ErrRemoteCall or services.ErrStorage and the caller decides what
// happens to the source file.
package dispatch
