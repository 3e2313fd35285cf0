// Package archive stores original check files in object storage.
//
// Key derives the object name from the wall clock, the store name, and the
// file name. Store implementations upload a local file under that key to an
// S3 or Google Cloud Storage bucket; NewFromConfig picks one from the
// [archive] section and returns a no-op store when archiving is disabled.
package archive
