//go:build !windows

package main

// NewSimConnectAdapter returns nil: SimConnect only exists on Windows.
func NewSimConnectAdapter() SimConnector {
	return nil
}
