// Package config loads the configuration of a syncmedia link.
//
// A configuration file is YAML or JSON, chosen by extension. Files are layered
// over Default: maps merge key by key and later layers win. Environment
// variables prefixed with SYNCMEDIA_ override the merged result.
//
//	link:
//	  name: meter-1
//	  transport: tcp
//	  address: 10.0.0.9:4001
//	framing:
//	  eop: ["0x0D0A"]
//	  wait_time: 2s
//	  kind: text
//	relay:
//	  subject: meters.raw
//	  encoding: msgpack
//
// Terminators in framing.eop are written as 0x-prefixed hex strings, literal
// text or single byte numbers. Durations accept Go duration strings, a day
// suffix ("14d") or integer nanoseconds.
//
// Loading with layers:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.yaml")
//	loader.AddLayer("config/site.yaml") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//
// Files must be regular files below 10MB. Relative paths may not escape the
// working directory.
package config
