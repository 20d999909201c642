package bn

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Config controls how scratch contexts are allocated and where diagnostics go.
type Config struct {
	// LibraryContext binds scratch contexts, and with them random generation
	// and prime search, to an OpenSSL library context. Nil selects the default
	// context. A context must not be freed while it is configured.
	LibraryContext *LibraryContext

	// SecureScratch allocates scratch temporaries from the OpenSSL secure heap.
	// Without CRYPTO_secure_malloc_init the library falls back to the normal heap.
	SecureScratch bool

	// Logger receives warnings and diagnostics. Nil selects the logrus
	// standard logger.
	Logger log.FieldLogger
}

var activeConfig atomic.Pointer[Config]

func init() {
	activeConfig.Store(&Config{})
}

// Configure installs cfg for every operation started afterwards.
func Configure(cfg Config) {
	activeConfig.Store(&cfg)
}

// CurrentConfig returns the configuration new operations will use.
func CurrentConfig() Config {
	return *activeConfig.Load()
}

func (c *Config) logger() log.FieldLogger {
	if c.Logger == nil {
		return log.StandardLogger()
	}
	return c.Logger
}

func logger() log.FieldLogger {
	return activeConfig.Load().logger()
}
