// Package config loads the exporter configuration and watches it for changes.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// (-config), the password environment variable (AMPLIFI_PASSWORD unless
// amplifi.password_env says otherwise), and flags explicitly given on the
// command line.
//
//	listen:   {address: 127.0.0.1, port: 3030}
//	amplifi:  {url: http://192.168.164.1, password_env: AMPLIFI_PASSWORD, timeout: 10s}
//	poll:     {interval: 15s, cooldown: 60s}
//	mock_file: ""
//	log_level: info
//
// Validation failures wrap ErrInvalid: a missing password, an interval
// below 5s, a non-http(s) URL. Watch reloads the file with fsnotify; only
// the poll interval is applied to a running exporter.
package config
