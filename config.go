package mfs

import (
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/subosito/gotenv"
)

// Configuration keys recognized by the adapter.
const (
	KeyDefaultFS          = "fs.defaultFS"
	KeyJuiceFSName        = "juicefs.name"
	KeyProbeCacheEnabled  = "mfs.probe.cache.enabled"
	KeyProbeCacheTTL      = "mfs.probe.cache.ttl"
	KeyProbeCacheNegTTL   = "mfs.probe.cache.negative.ttl"
	KeyProbeCacheMaxItems = "mfs.probe.cache.max.entries"

	defaultFS = "file:///"
)

// disableCacheKey returns the key that makes the backend registry build a
// fresh instance for scheme instead of returning a cached one.
func disableCacheKey(scheme string) string {
	return "fs." + scheme + ".impl.disable.cache"
}

// Configuration is a concurrency safe string key/value store. Files are read
// in dotenv format; keys may contain dots.
type Configuration struct {
	values sync.Map
}

// NewConfiguration returns a configuration holding entries.
func NewConfiguration(entries map[string]string) *Configuration {
	c := &Configuration{}
	for key, value := range entries {
		c.values.Store(key, value)
	}
	return c
}

// LoadFromPath merges the key/value pairs of the dotenv file at path into c.
// The process environment is not touched.
func (c *Configuration) LoadFromPath(path string) error {
	env, err := gotenv.Read(path)
	if err != nil {
		return errors.Wrapf(err, "load configuration from %s", path)
	}
	c.merge(env)
	return nil
}

// LoadFromReader merges the key/value pairs read from r into c.
func (c *Configuration) LoadFromReader(r io.Reader) error {
	env, err := gotenv.StrictParse(r)
	if err != nil {
		return errors.Wrap(err, "parse configuration")
	}
	c.merge(env)
	return nil
}

func (c *Configuration) merge(env gotenv.Env) {
	for key, value := range env {
		c.values.Store(key, value)
	}
}

// Set stores value under key.
func (c *Configuration) Set(key, value string) {
	c.values.Store(key, value)
}

// GetKey returns the value of key, or "" when it is unset.
func (c *Configuration) GetKey(key string) string {
	v, ok := c.values.Load(key)
	switch {
	case !ok:
		return ""

	case v == nil:
		return ""

	default:
		return v.(string)
	}
}

// GetKeyWithDefault returns the value of key, or defaultValue when it is unset.
func (c *Configuration) GetKeyWithDefault(key, defaultValue string) string {
	val := c.GetKey(key)
	if val == "" {
		return defaultValue
	}

	return val
}

// GetIntKeyWithDefault returns key parsed as an int, or defaultValue when it
// is unset or not a number.
func (c *Configuration) GetIntKeyWithDefault(key string, defaultValue int) int {
	intVal, err := strconv.Atoi(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetBool parses key with strconv.ParseBool, returning defaultValue when the
// key is missing or malformed.
func (c *Configuration) GetBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return b
}

// GetDuration parses key with time.ParseDuration, returning defaultValue when
// the key is missing or malformed.
func (c *Configuration) GetDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(c.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return d
}

// Keys returns every key in c, sorted.
func (c *Configuration) Keys() []string {
	var keys []string
	c.values.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy of c.
func (c *Configuration) Clone() *Configuration {
	out := &Configuration{}
	c.values.Range(func(k, v any) bool {
		out.values.Store(k, v)
		return true
	})
	return out
}
