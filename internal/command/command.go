// Package command is the catalog of OBD-II mode/PID decoders and the SAE
// J1939 PGN decoders layered on top of the wire-level obd package.
package command

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Command decodes one mode/PID response into a named value.
type Command struct {
	Name string
	Mode byte
	PID  byte
	// Decode turns an already mode/PID-stripped payload into a value. It
	// must not retain data past the call.
	Decode func(data []byte) (any, error)
}

func key(mode, pid byte) uint16 { return uint16(mode)<<8 | uint16(pid) }

// Registry is a lookup table from (mode, pid) to the Command that decodes
// it, built once at startup and read concurrently thereafter.
type Registry struct {
	commands map[uint16]*Command
}

// NewRegistry builds a Registry pre-populated with the standard mode 01/03/09
// command set.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[uint16]*Command)}
	for _, c := range standardCommands {
		r.Register(c)
	}
	return r
}

// Register adds or replaces the Command for its (Mode, PID).
func (r *Registry) Register(c *Command) {
	r.commands[key(c.Mode, c.PID)] = c
}

// Lookup returns the Command registered for mode/pid, if any.
func (r *Registry) Lookup(mode, pid byte) (*Command, bool) {
	c, ok := r.commands[key(mode, pid)]
	return c, ok
}

// decodeCacheKey identifies one (mode, pid, payload) triple for the LRU
// decode cache; payload is folded into a fixed-size array so the key
// itself is comparable and cheap to hash.
type decodeCacheKey struct {
	mode, pid byte
	payload   [8]byte
	n         int
}

// CachingRegistry wraps a Registry with an LRU cache over Decode results,
// since the same ECU frequently reports the same handful of distinct
// payloads (engine at idle, steady cruise) across many polling cycles.
type CachingRegistry struct {
	*Registry
	cache *lru.Cache[decodeCacheKey, any]
}

// NewCachingRegistry wraps NewRegistry() with an LRU cache of the given
// size. size <= 0 falls back to a sensible default.
func NewCachingRegistry(size int) (*CachingRegistry, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[decodeCacheKey, any](size)
	if err != nil {
		return nil, fmt.Errorf("command: building decode cache: %w", err)
	}
	return &CachingRegistry{Registry: NewRegistry(), cache: cache}, nil
}

// Decode looks up mode/pid and decodes data, caching the result. Payloads
// longer than the cache key's fixed window bypass the cache entirely but
// still decode normally.
func (r *CachingRegistry) Decode(mode, pid byte, data []byte) (string, any, error) {
	cmd, ok := r.Lookup(mode, pid)
	if !ok {
		return "", nil, fmt.Errorf("command: no decoder registered for mode 0x%02X pid 0x%02X", mode, pid)
	}

	if len(data) <= 8 {
		var k decodeCacheKey
		k.mode, k.pid, k.n = mode, pid, len(data)
		copy(k.payload[:], data)
		if v, ok := r.cache.Get(k); ok {
			return cmd.Name, v, nil
		}
		v, err := cmd.Decode(data)
		if err != nil {
			return cmd.Name, nil, err
		}
		r.cache.Add(k, v)
		return cmd.Name, v, nil
	}

	v, err := cmd.Decode(data)
	return cmd.Name, v, err
}
