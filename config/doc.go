// Package config loads bridge settings from a TOML file and the
// environment.
//
// A file may set any subset of keys; unset keys keep the values from
// Default. Unknown keys are rejected so typos surface at load time.
//
//	[log]
//	level = "debug"
//	development = true
//
//	[files]
//	host = "sandbox"
//	root = "/var/lib/bridge"
//
//	[serial]
//	transport = "loopback"
//	params = ["port=9000"]
//
//	[display]
//	backend = "terminal"
//	width = 80
//	height = 48
package config
