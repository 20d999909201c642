package bn

// #include <openssl/crypto.h>
// #include <openssl/provider.h>
// #include "shim.h"
import "C"
import (
	"runtime"
	"sort"
	"sync"
	"unsafe"
)

// LibraryContext is an OpenSSL library context and the providers loaded into
// it. Scratch contexts created while it is configured are bound to it.
type LibraryContext struct {
	ctx       *C.OSSL_LIB_CTX
	providers map[string]*C.OSSL_PROVIDER
	mu        *sync.Mutex
}

// NewLibraryContext creates a library context and loads the named providers
// into it, in order.
func NewLibraryContext(providers ...string) (*LibraryContext, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	ctx := C.OSSL_LIB_CTX_new()
	if ctx == nil {
		return nil, errorFromErrorQueue("OSSL_LIB_CTX_new")
	}
	c := &LibraryContext{
		ctx: ctx, providers: make(map[string]*C.OSSL_PROVIDER), mu: &sync.Mutex{},
	}
	runtime.SetFinalizer(c, func(c *LibraryContext) { c.finalise() })
	for _, name := range providers {
		if err := c.LoadProvider(name); err != nil {
			c.Free()
			return nil, err
		}
	}
	return c, nil
}

// LoadProvider loads a provider by name. Loading one twice is a no-op; loading
// into a freed context fails.
func (c *LibraryContext) LoadProvider(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.providers[name]; exists {
		return nil
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ensureErrorQueueIsClear()

	// a NULL context would load into the process-wide default one
	if c.ctx == nil {
		C.X_ERR_raise_passed_null()
		return errorFromErrorQueue("OSSL_PROVIDER_load")
	}

	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	provider := C.OSSL_PROVIDER_load(c.ctx, cname)
	if provider == nil {
		return errorFromErrorQueue("OSSL_PROVIDER_load")
	}
	c.providers[name] = provider
	return nil
}

// Providers lists the loaded provider names.
func (c *LibraryContext) Providers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.providers))
	for name := range c.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Free unloads every provider and releases the context.
func (c *LibraryContext) Free() {
	c.finalise()
	runtime.SetFinalizer(c, nil)
}

func (c *LibraryContext) finalise() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, p := range c.providers {
		C.OSSL_PROVIDER_unload(p)
		delete(c.providers, name)
	}
	if c.ctx != nil {
		C.OSSL_LIB_CTX_free(c.ctx)
		c.ctx = nil
	}
}

// raw maps a nil context to OpenSSL's default one.
func (c *LibraryContext) raw() *C.OSSL_LIB_CTX {
	if c == nil {
		return nil
	}
	return c.ctx
}
