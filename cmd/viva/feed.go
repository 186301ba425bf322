package main

import orchestration "github.com/koscakluka/viva-core/core"

// newSnapshotFeed forwards store snapshots to the UI. Only the latest
// snapshot is kept so a slow render never blocks the session loop.
func newSnapshotFeed(store *orchestration.Store) (<-chan orchestration.Snapshot, func()) {
	updates := make(chan orchestration.Snapshot, 1)
	unsubscribe := store.Subscribe(func(snapshot orchestration.Snapshot) {
		select {
		case updates <- snapshot:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snapshot:
		default:
		}
	})
	return updates, unsubscribe
}
