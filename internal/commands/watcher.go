package commands

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the event bursts editors produce on save.
const debounceWindow = 250 * time.Millisecond

// Watch reloads the executor whenever a markdown file under its root
// changes. The whole tree is watched: commands live in subdirectories too
// (named "dir:file"), and fsnotify watches are not recursive on their own.
// Blocks until ctx is cancelled; callers run it in a goroutine.
func Watch(ctx context.Context, e *Executor) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchTree(watcher, e.root); err != nil {
		return err
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			relevant := strings.HasSuffix(event.Name, ".md")
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					// A directory moved in can already hold command files.
					if err := watchTree(watcher, event.Name); err != nil {
						log.Printf("commands: watch %s: %v", event.Name, err)
					}
					relevant = true
				}
			}
			if !relevant {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			timerC = timer.C
		case <-timerC:
			timerC = nil
			e.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("commands: watch: %v", err)
		}
	}
}

// watchTree adds root and every directory below it to the watch set.
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
