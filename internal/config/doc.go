// Package config defines configuration structures for the wayback-scraper CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (WAYBACK_SCRAPER_ prefix)
//   - YAML configuration file
//
// Later sources override earlier ones, field by field.
//
// # File
//
//	output: downloads
//	state_url: s3://my-bucket?region=eu-west-1
//	downloader:
//	  binary: wayback_machine_downloader
//	  timeout: 15m
//	  concurrency: 2
//	window:
//	  months_before: 6
//	  months_after: 12
//	input:
//	  url_column: URL
//	  date_column: Deal Date
//	  delimiter: ";"
//	proxy:
//	  url: http://proxy:3128
//	log_level: info
package config
