// Package config provides configuration management for bandcamp-downloader.
//
// This package handles:
//   - Loading and saving settings from YAML files
//   - Default configuration values
//   - Validation and a structured dump for the startup log
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Saves to ./music/{publisher}/
//	// Polls the mailbox once a second for two minutes
//	// Caps the status-check chain at 30 requests
//
// # Loading from File
//
//	settings, err := config.Load("bandcamp.yaml")
//	if err != nil {
//	    // Invalid YAML or an invalid option; a missing file yields defaults
//	}
//
// A complete file looks like:
//
//	music_folder: ./music
//	no_artist_subfolder: false
//	request_interval: 1s
//	fail_fast: false
//	save_cover_art: true
//	mailbox:
//	  api_url: https://www.1secmail.com/api/v1/
//	  poll_interval: 1s
//	  poll_attempts: 120
//	download:
//	  status_check_attempts: 30
//	  queue_size: 16
//	log:
//	  level: info
//	  format: auto
//
// # Saving Settings
//
//	settings.MusicFolder = "/srv/music"
//	err := settings.Save("bandcamp.yaml")
package config
