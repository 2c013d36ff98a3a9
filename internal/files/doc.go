// Package files defines the shared file-entry data model for the sync
// pipeline: discovered remote files, their identity and ordering rules, and
// path sanitization for local destinations.
package files
