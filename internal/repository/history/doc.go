// Package history persists a YAML log of completed install and uninstall
// operations so operators can see what was done to which device and when.
package history
