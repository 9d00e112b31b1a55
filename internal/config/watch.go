package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/home-lang/den/internal/denlog"
)

// Watch watches path (as returned by Load) for writes and invokes onChange
// with the freshly reloaded Config each time, so the shell can re-render
// its prompt theme live without restarting. It returns
// immediately; the watch runs on its own goroutine until the process
// exits or path is removed from disk (viper-adjacent editors often
// rewrite a file via rename+create, which fsnotify reports as Remove
// followed shortly by Create — this loop re-adds the watch on Remove so
// editors like that keep working).
func Watch(path string, onChange func(*Config)) error {
	if path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	log := denlog.Component("config")
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					cfg := Default()
					if err := load(path, cfg); err != nil {
						log.Debug().Err(err).Msg("config reload failed")
						continue
					}
					onChange(cfg)
				}
				if ev.Op&fsnotify.Remove != 0 {
					w.Add(path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Debug().Err(err).Msg("config watch error")
			}
		}
	}()
	return nil
}
