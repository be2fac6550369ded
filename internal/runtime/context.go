// Package runtime holds the state that accumulates while a workflow runs.
package runtime

import "sort"

// Context is the string-keyed store that completed steps write into and
// later steps read from. Keys are only ever added or overwritten.
//
// A Context is owned by a single executor and is not safe for concurrent
// use; the owner serializes every write.
type Context struct {
	vars map[string]string
}

func NewContext() *Context {
	return &Context{
		vars: make(map[string]string),
	}
}

// Set stores value under name, replacing any previous value.
func (c *Context) Set(name, value string) {
	c.vars[name] = value
}

// Merge copies every entry of values into the context.
func (c *Context) Merge(values map[string]string) {
	for k, v := range values {
		c.vars[k] = v
	}
}

// Get returns the value stored under name and whether it exists.
func (c *Context) Get(name string) (string, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Value returns the value stored under name, or "" if there is none.
func (c *Context) Value(name string) string {
	return c.vars[name]
}

// Lookup returns the first non-empty value among names.
func (c *Context) Lookup(names ...string) string {
	for _, n := range names {
		if v := c.vars[n]; v != "" {
			return v
		}
	}
	return ""
}

// Prefill returns the stored values for those names that have a non-empty
// entry. The result is a fresh map the caller may modify.
func (c *Context) Prefill(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v := c.vars[n]; v != "" {
			out[n] = v
		}
	}
	return out
}

// Snapshot returns a copy of all entries.
func (c *Context) Snapshot() map[string]string {
	out := make(map[string]string, len(c.vars))
	for k, v := range c.vars {
		out[k] = v
	}
	return out
}

// Keys returns the stored names in sorted order.
func (c *Context) Keys() []string {
	keys := make([]string, 0, len(c.vars))
	for k := range c.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Context) Len() int {
	return len(c.vars)
}
