// Package startup handles configuration loading and startup/shutdown
// logging for the rawcat commands.
//
// # Configuration
//
// Configuration is layered with viper, later layers winning:
//
//  1. defaults registered by [SetDefaults]
//  2. an optional YAML file, rawcat.yaml in the working directory or
//     $HOME/.config/rawcat, or the file given with --config
//  3. RAWCAT_* environment variables, e.g. RAWCAT_DATABASE_PATH or
//     RAWCAT_PREVIEW_QUALITY
//  4. command line flags bound by the cmd package
//
// [LoadConfig] turns the result into a validated [Config], from which the
// catalog, renderer and indexer options are derived.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Lifecycle Logging
//
// The package provides sectioned logging for consistent output:
//   - [Begin]: banner, system information and the CONFIGURATION block
//   - [PrepareCatalogDir]: catalog directory checks
//   - [LogDatabaseInit]: catalog open timing
//   - [LogDecoderInit]: pixel sources and metadata tool availability
//   - [LogIndexerInit]: scan settings
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: server endpoints and startup duration
//   - [LogShutdownInitiated]: graceful shutdown start
//   - [LogShutdownComplete]: shutdown completion
package startup
