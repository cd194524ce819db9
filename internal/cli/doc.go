// Package cli builds the cobra commands behind the rawcat and photosearch
// binaries.
//
// rawcat has three subcommands: scan generates previews and catalogs RAW
// files, search lists catalog rows, and serve exposes the search API over
// HTTP. photosearch is a single command that searches the JPG and RAW
// catalogs together.
//
// Every command resolves its settings through startup.LoadConfig, so flags,
// RAWCAT_* variables and rawcat.yaml all apply.
package cli
