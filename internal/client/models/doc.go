// Package models defines the client-side data models of the LingoPost CLI:
// the authenticated session, backend resources, cached media and upload jobs.
package models
