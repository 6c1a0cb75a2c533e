// Package config loads, normalizes, and validates subtrans configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, loads .env files, and honours environment fallbacks for the
// translation service credentials (LARA_ACCESS_KEY_ID, LARA_ACCESS_KEY_SECRET,
// LARA_MCP_SERVER_URL). Credentials are not required at load time: scanning
// and extraction work without them, and the translation client rejects
// missing credentials when it is constructed.
package config
