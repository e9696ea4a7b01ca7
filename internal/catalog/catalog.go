package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/parsererror"
)

// ImportMode selects how an imported document combines with the catalog.
type ImportMode int

const (
	// ImportMerge adds new patterns and replaces patterns with the same id.
	ImportMerge ImportMode = iota
	// ImportReplace discards every existing pattern.
	ImportReplace
)

// Catalog is the process-wide, read-mostly set of compiled rules keyed by id.
// Reads may run concurrently; mutations are serialized.
type Catalog struct {
	mu     sync.RWMutex
	rules  map[string]*Rule
	logger logging.Logger
}

// New returns an empty catalog.
func New(logger logging.Logger) *Catalog {
	return &Catalog{
		rules:  make(map[string]*Rule),
		logger: logging.OrDefault(logger),
	}
}

// NewWithDefaults returns a catalog seeded with DefaultPatterns.
func NewWithDefaults(logger logging.Logger) (*Catalog, error) {
	c := New(logger)
	if err := c.Import(Document{Version: DocumentVersion, Patterns: DefaultPatterns()}, ImportMerge); err != nil {
		return nil, fmt.Errorf("failed to load default patterns: %w", err)
	}
	return c, nil
}

// Len returns the number of patterns, enabled or not.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rules)
}

// Add validates and registers a new pattern.
func (c *Catalog) Add(cfg PatternConfig) error {
	rule, err := compile(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[cfg.ID]; exists {
		return &parsererror.ConfigError{
			PatternID: cfg.ID,
			Field:     "id",
			Reason:    "a pattern with this id already exists",
			Err:       parsererror.ErrDuplicatePattern,
		}
	}
	c.rules[cfg.ID] = rule
	c.logger.Debug("Pattern added", logging.F(logging.FieldPatternID, cfg.ID))
	return nil
}

// Update validates and replaces an existing pattern.
func (c *Catalog) Update(cfg PatternConfig) error {
	rule, err := compile(cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[cfg.ID]; !exists {
		return fmt.Errorf("%w: %s", parsererror.ErrPatternNotFound, cfg.ID)
	}
	c.rules[cfg.ID] = rule
	c.logger.Debug("Pattern updated", logging.F(logging.FieldPatternID, cfg.ID))
	return nil
}

// Delete removes a pattern.
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.rules[id]; !exists {
		return fmt.Errorf("%w: %s", parsererror.ErrPatternNotFound, id)
	}
	delete(c.rules, id)
	c.logger.Debug("Pattern deleted", logging.F(logging.FieldPatternID, id))
	return nil
}

// Duplicate copies pattern id under newID. The copy is named after the
// original with a " (copy)" suffix.
func (c *Catalog) Duplicate(id, newID string) error {
	c.mu.RLock()
	src, exists := c.rules[id]
	c.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", parsererror.ErrPatternNotFound, id)
	}

	cfg := src.Config()
	cfg.ID = newID
	cfg.Name = cfg.Name + " (copy)"
	return c.Add(cfg)
}

// SetEnabled toggles whether a pattern takes part in extraction.
func (c *Catalog) SetEnabled(id string, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rule, exists := c.rules[id]
	if !exists {
		return fmt.Errorf("%w: %s", parsererror.ErrPatternNotFound, id)
	}
	cfg := rule.config.Clone()
	cfg.Enabled = enabled
	toggled := *rule
	toggled.config = cfg
	c.rules[id] = &toggled
	return nil
}

// Get returns a copy of the pattern with the given id.
func (c *Catalog) Get(id string) (PatternConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rule, exists := c.rules[id]
	if !exists {
		return PatternConfig{}, false
	}
	return rule.Config(), true
}

// Rule returns the compiled rule with the given id.
func (c *Catalog) Rule(id string) (*Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rule, exists := c.rules[id]
	return rule, exists
}

// List returns copies of every pattern sorted by priority desc, then id.
func (c *Catalog) List() []PatternConfig {
	rules := c.snapshot(func(*Rule) bool { return true })
	out := make([]PatternConfig, len(rules))
	for idx, rule := range rules {
		out[idx] = rule.Config()
	}
	return out
}

// Applicable returns the enabled rules to run for a detected store. With a
// store, its rules come first followed by the generic ones; without a store,
// generic rules come first followed by every store-specific rule. Each group
// is sorted by priority desc, then id.
func (c *Catalog) Applicable(store string) []*Rule {
	generic := c.snapshot(func(r *Rule) bool { return r.Enabled() && !r.IsStoreSpecific() })
	if store != "" {
		specific := c.snapshot(func(r *Rule) bool { return r.Enabled() && r.AppliesToStore(store) })
		return append(specific, generic...)
	}
	specific := c.snapshot(func(r *Rule) bool { return r.Enabled() && r.IsStoreSpecific() })
	return append(generic, specific...)
}

func (c *Catalog) snapshot(keep func(*Rule) bool) []*Rule {
	c.mu.RLock()
	out := make([]*Rule, 0, len(c.rules))
	for _, rule := range c.rules {
		if keep(rule) {
			out = append(out, rule)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority() != out[j].Priority() {
			return out[i].Priority() > out[j].Priority()
		}
		return out[i].ID() < out[j].ID()
	})
	return out
}

// Import validates every pattern of doc and commits them together. Any
// invalid pattern, or an id repeated within doc, leaves the catalog untouched.
func (c *Catalog) Import(doc Document, mode ImportMode) error {
	compiled := make(map[string]*Rule, len(doc.Patterns))
	for idx, cfg := range doc.Patterns {
		rule, err := compile(cfg)
		if err != nil {
			return fmt.Errorf("pattern %d rejected, import rolled back: %w", idx, err)
		}
		if _, dup := compiled[cfg.ID]; dup {
			return fmt.Errorf("pattern %d rejected, import rolled back: %w", idx, &parsererror.ConfigError{
				PatternID: cfg.ID,
				Field:     "id",
				Reason:    "id repeated within document",
				Err:       parsererror.ErrDuplicatePattern,
			})
		}
		compiled[cfg.ID] = rule
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if mode == ImportReplace {
		c.rules = compiled
	} else {
		for id, rule := range compiled {
			c.rules[id] = rule
		}
	}
	c.logger.Info("Patterns imported",
		logging.F(logging.FieldCount, len(compiled)),
		logging.F("total", len(c.rules)))
	return nil
}

// Export returns the catalog as a versioned document.
func (c *Catalog) Export() Document {
	return Document{
		Version:    DocumentVersion,
		ExportDate: time.Now().UTC().Truncate(time.Second),
		Patterns:   c.List(),
	}
}
