// Package config loads, validates, and persists the YAML settings shared by
// the as3ctl commands: device connection parameters, workflow knobs
// (polling, upload policy), and the release repository coordinates.
package config
