// Package iocache is for durable storage of totals and delta history.
package iocache

import (
	"sync"

	"github.com/pulsegrid/pulsegrid/internal/contract"
)

// CacheStoreManager manages the totals cache and history store instances.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	totals       contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetTotalsStore returns the totals CacheStore.
func (mgr *CacheStoreManager) GetTotalsStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.totals
}

// GetHistoryStore returns the delta HistoryStore.
func (mgr *CacheStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
