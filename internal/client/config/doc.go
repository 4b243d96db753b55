// Package config loads runtime configuration for the LingoPost CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see Defaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Environment variables prefixed with LINGOPOST_, e.g. LINGOPOST_BASE_URL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string       backend base URL
//	-d string       local data directory (database, media cache, recordings)
//	-t duration     timeout of regular requests
//	-u duration     timeout of uploads and downloads
//	-l string       log level: debug, info, warn or error
//	-log-file path  write logs to a rotating file instead of stderr
//
// # JSON schema
//
// Durations are strings such as "30s". Player and recorder commands are
// either arrays or space-separated strings:
//
//	{
//	  "base_url": "http://127.0.0.1:8000",
//	  "request_timeout": "30s",
//	  "player": "ffplay -nodisp -autoexit -loglevel quiet"
//	}
package config
