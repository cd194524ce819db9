// Package search queries the JPG and RAW photo catalogs through one
// interface.
//
// Each catalog is a Source. The Service asks its sources in order (JPG
// first, then RAW), tags every hit with its origin and concatenates the
// lists without re-sorting. RAW hits point at the generated preview, never
// at the RAW file, and rows without a preview are left out. A catalog that
// is missing or unreadable is reported and skipped.
package search
