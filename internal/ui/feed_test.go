package ui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/bakehouse/internal/state"
)

func TestFeed_DeliversCurrentSnapshot(t *testing.T) {
	store := state.New(state.WithSnapshot(state.Snapshot{Cookies: 4}))
	feed := NewFeed(store)
	defer feed.Close()

	snap := <-feed.C()
	require.Equal(t, int64(4), snap.Cookies)
}

func TestFeed_KeepsOnlyNewest(t *testing.T) {
	store := state.New()
	feed := NewFeed(store)
	defer feed.Close()

	for range 5 {
		store.Dispatch(state.Increment{Amount: 1})
	}

	snap := <-feed.C()
	require.Equal(t, int64(5), snap.Cookies)
	require.Equal(t, uint64(5), snap.Version)
	select {
	case extra := <-feed.C():
		t.Fatalf("unexpected extra snapshot %+v", extra)
	default:
	}
}

func TestFeed_IgnoresOlderVersions(t *testing.T) {
	store := state.New()
	feed := NewFeed(store)
	defer feed.Close()

	store.Dispatch(state.Increment{Amount: 1})
	<-feed.C()
	feed.push(state.Snapshot{Version: 0})

	select {
	case snap := <-feed.C():
		t.Fatalf("stale snapshot delivered: %+v", snap)
	default:
	}
}

func TestFeed_Close(t *testing.T) {
	store := state.New()
	feed := NewFeed(store)
	<-feed.C()

	feed.Close()
	feed.Close()
	store.Dispatch(state.Increment{Amount: 1})

	_, ok := <-feed.C()
	require.False(t, ok)
}
