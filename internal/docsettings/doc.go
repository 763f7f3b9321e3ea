// Package docsettings resolves and durably persists per-document sidecar
// settings for a document reader, together with the custom assets (cover
// image, metadata override) that live next to them.
//
// A document's settings may exist as several on-disk copies accumulated by
// historical layouts: a ".sdr" directory next to the document, a mirrored
// directory under a central settings root, a flat legacy history folder,
// and two older flat naming schemes. [Store.Open] discovers every copy,
// orders them most-recently-used, and loads the winner, deleting empty or
// unparsable copies along the way. [Session.Flush] writes the record back
// with backup rotation and fsync ordering so a crash leaves either the old
// or the new generation on disk, never a partial file, and then purges the
// losing copies.
//
// The package performs no locking; concurrent writers for the same
// document are last-writer-wins.
package docsettings
