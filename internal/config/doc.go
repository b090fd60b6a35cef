// Package config loads and validates the scribed configuration file.
//
// Configuration is an explicit struct handed to each component at
// construction; nothing reads ambient process state at call time.
package config
