// Package config loads the voicesync configuration file.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/voicesync/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Missing or blank fields keep their defaults
//
// Before the file is read, .env files in the working directory and the
// config directory are loaded with godotenv. VOICESYNC_API_URL and
// VOICESYNC_TOKEN then override whatever the file says, so a token never has
// to be written to config.toml.
//
// # TOML Format
//
//	api_url = "https://voicebrain.example.com/api/v1"
//	token = "..."
//	data_dir = "~/.local/share/voicesync"
//	export_dir = "~/Documents/voicesync"
//	log_level = "info"
//
//	[poll]
//	min_delay = "3s"
//	max_delay = "30s"
//	backoff_factor = 1.5
//
//	[network]
//	request_timeout = "15s"
//	upload_timeout = "5m"
//	offline_after_failures = 2
//
//	[record]
//	command = ["ffmpeg", "-f", "pulse", "-i", "default", "-f", "webm", "-"]
//	filename = "recording.webm"
//
// Durations use Go syntax. Paths accept a leading ~.
//
// # Derived Paths
//
//   - Pending uploads: <data_dir>/pending.db
//   - Log file: <data_dir>/voicesync.log
package config
