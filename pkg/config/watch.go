// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration whenever a configuration file changes.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	reload  func(string) error
	stop    chan struct{}
	wg      sync.WaitGroup
}

// WatchFile starts reloading the configuration from path upon changes.
//
// The parent directory is watched so that editors replacing the file and
// symlink swaps (kubernetes ConfigMap style) get noticed as well.
func WatchFile(path string) (*Watcher, error) {
	return watchFile(path, SetConfigFromFile)
}

func watchFile(path string, reload func(string) error) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, configError("failed to resolve %q: %v", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, configError("failed to create file watcher: %v", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, configError("failed to watch %q: %v", filepath.Dir(path), err)
	}

	w := &Watcher{
		path:    path,
		watcher: fsw,
		reload:  reload,
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Stop stops watching for configuration file changes.
func (w *Watcher) Stop() {
	if w == nil || w.stop == nil {
		return
	}
	close(w.stop)
	w.watcher.Close()
	w.wg.Wait()
	w.stop = nil
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stop:
			return
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Infof("configuration file %s changed (%s), reloading...", w.path, e.Op)
			if err := w.reload(w.path); err != nil {
				log.Errorf("failed to reload configuration file %s: %v", w.path, err)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warningf("configuration file watcher: %v", err)
		}
	}
}
