package mft

import (
	"sync"

	"github.com/forensicanalysis/ntfsstore/ntfs"
)

type pathMap struct {
	sync.RWMutex
	paths map[ntfs.FileReference][]string
}

func newPathMap() *pathMap {
	return &pathMap{
		paths: map[ntfs.FileReference][]string{},
	}
}

func (pm *pathMap) load(ref ntfs.FileReference) (names []string, ok bool) {
	pm.RLock()
	names, ok = pm.paths[ref]
	pm.RUnlock()
	return names, ok
}

func (pm *pathMap) store(ref ntfs.FileReference, names []string) {
	pm.Lock()
	pm.paths[ref] = names
	pm.Unlock()
}

func (pm *pathMap) len() int {
	pm.RLock()
	defer pm.RUnlock()
	return len(pm.paths)
}
