// Package logging provides leveled logging for rawcat.
//
// The printf-style helpers (Debug, Info, Warn, Error, Fatal) are backed by a
// zerolog logger writing to stderr. Structured call sites can reach the
// underlying logger through Logger.
//
// The initial level comes from the DEBUG or LOG_LEVEL environment variables
// and can be changed at runtime with SetLevel once configuration is loaded.
package logging
