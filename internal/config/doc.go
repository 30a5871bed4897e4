// Package config provides configuration management for clawguard.
//
// Configuration is layered. Later sources override only the keys they
// mention:
//
//  1. Built-in defaults (see Default)
//  2. User configuration (~/.config/clawguard/config.yaml)
//  3. Project configuration (./.clawguard/config.yaml)
//  4. An explicit file passed with --config
//
// Durations are written as Go duration strings:
//
//	monitor:
//	  processName: openclaw
//	  checkInterval: 5m
//	  timeoutThreshold: 20m
//	network:
//	  httpProxy: http://127.0.0.1:4780
//	  domesticTargets:
//	    - name: Baidu
//	      url: https://www.baidu.com
//
// Paths may start with "~/" and are expanded against the user's home directory.
package config
