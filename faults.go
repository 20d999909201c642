package bn

// #include "shim.h"
import "C"

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// allocSite names a place where the package asks libcrypto for memory it
// must later give back.
type allocSite int

const (
	siteBigNum allocSite = iota
	siteScratch
	siteCallback
)

func (s allocSite) String() string {
	switch s {
	case siteBigNum:
		return "bignum"
	case siteScratch:
		return "scratch"
	case siteCallback:
		return "callback"
	}
	return "unknown"
}

// allocFault, when set, is consulted before every native allocation the
// package makes. Returning true fails that allocation as if the allocator
// were exhausted. Only tests set it.
var allocFault func(site allocSite) bool

// injectFault reports whether the allocation at site must fail. An injected
// failure leaves a malloc failure on the error queue like a real one would.
func injectFault(site allocSite) bool {
	if allocFault == nil || !allocFault(site) {
		return false
	}
	C.X_BN_raise_malloc_failure()
	return true
}

// ledger records the native handles the package owns while tracking is on.
type ledger struct {
	tracking atomic.Bool
	mu       sync.Mutex
	handles  map[uintptr]allocSite
}

var owned ledger

func (l *ledger) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles = make(map[uintptr]allocSite)
	l.tracking.Store(true)
}

func (l *ledger) stop() {
	l.tracking.Store(false)
}

func (l *ledger) acquire(p unsafe.Pointer, site allocSite) {
	if !l.tracking.Load() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handles[uintptr(p)] = site
}

func (l *ledger) release(p unsafe.Pointer) {
	if !l.tracking.Load() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.handles, uintptr(p))
}

// outstanding counts tracked handles per site.
func (l *ledger) outstanding() map[allocSite]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := make(map[allocSite]int)
	for _, site := range l.handles {
		counts[site]++
	}
	return counts
}

func (l *ledger) owns(b *BigNum) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.handles[uintptr(unsafe.Pointer(b.bn))]
	return ok
}
