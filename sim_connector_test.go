package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStale(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name         string
		active       bool
		lastReceived time.Time
		want         bool
	}{
		{"stale when last data is 15s old", true, now.Add(-15 * time.Second), true},
		{"not stale when recent", true, now.Add(-3 * time.Second), false},
		{"not stale when inactive", false, now.Add(-30 * time.Second), false},
		{"not stale before first data", true, time.Time{}, false},
		{"exactly 10s is not stale", true, now.Add(-10 * time.Second), false},
		{"just past 10s", true, now.Add(-10*time.Second - 100*time.Millisecond), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStale(tt.active, tt.lastReceived, now))
		})
	}
}

func TestReconnectBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		expected time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, 60 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
		{70, 60 * time.Second},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("attempts_%d", tc.attempts), func(t *testing.T) {
			assert.Equal(t, tc.expected, reconnectBackoff(tc.attempts))
		})
	}
}
