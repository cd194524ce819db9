// Command photosearch searches the JPG and RAW photo catalogs together.
//
// Usage:
//
//	photosearch [query] [--client X] [--date YYYY-MM-DD] [--camera C] [--location] [--limit 50] [--count] [--simple]
//
// A positional query searches by client name. JPG matches are listed
// before RAW previews, and --limit applies to each catalog separately.
package main
