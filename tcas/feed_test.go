package tcas

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vasradar.xml"), []byte(radarProtocol), 0o644))
	out := filepath.Join(dir, "radar.out")
	require.NoError(t, os.WriteFile(out, nil, 0o644))

	cfg := DefaultConfig()
	cfg.Transport = "file"
	cfg.TailPath = out
	cfg.TailPoll = 20 * time.Millisecond
	cfg.ProtocolDir = dir

	f, err := NewFeed(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.Run(ctx) }()

	require.Eventually(t, func() bool {
		fh, err := os.OpenFile(out, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return false
		}
		fh.WriteString("42,48,11,4000,10,150,0,N42,1,1\n")
		fh.Close()
		return f.Contacts().Len() == 1
	}, 2*time.Second, 50*time.Millisecond)
	assert.Equal(t, 42, f.Contacts().List()[0].ID)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop")
	}
}

func TestFeedFromFileKeepsEveryContactOfARead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vasradar.xml"), []byte(radarProtocol), 0o644))
	out := filepath.Join(dir, "radar.out")
	require.NoError(t, os.WriteFile(out, nil, 0o644))

	cfg := DefaultConfig()
	cfg.Transport = "file"
	cfg.TailPath = out
	cfg.TailPoll = 20 * time.Millisecond
	cfg.ProtocolDir = dir

	f, err := NewFeed(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	// one write carrying three aircraft, repeated until the tail is up
	batch := "41,48,11,4000,10,150,0,N41,1,1\n" +
		"42,48.1,11,5000,20,160,0,N42,1,1\n" +
		"43,48.2,11,6000,30,170,0,N43,1,1\n"
	require.Eventually(t, func() bool {
		fh, err := os.OpenFile(out, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return false
		}
		fh.WriteString(batch)
		fh.Close()
		return f.Contacts().Len() == 3
	}, 2*time.Second, 50*time.Millisecond)

	ids := []int{}
	for _, c := range f.Contacts().List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{41, 42, 43}, ids)
}

func TestNewFeedErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vasradar.xml"), []byte(radarProtocol), 0o644))

	cfg := DefaultConfig()
	cfg.ProtocolDir = dir
	cfg.Transport = "smoke-signals"
	_, err := NewFeed(cfg, nil)
	assert.Error(t, err)

	cfg.Transport = "file"
	_, err = NewFeed(cfg, nil)
	assert.Error(t, err, "file transport needs a path")

	cfg = DefaultConfig()
	cfg.ProtocolDir = t.TempDir()
	_, err = NewFeed(cfg, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
