package catalog

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the function set whenever a file under the functions
// directory is written, created, removed, or renamed. The returned
// stop function shuts the watcher down.
func (c *Catalog) Watch() (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(c.functionsDir); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				log.Printf("[catalog] change detected: %s", event.Name)
				if err := c.Reload(); err != nil {
					log.Printf("[catalog] reload failed: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[catalog] watch error: %v", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
