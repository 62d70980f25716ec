package aml

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"kycintake/internal/extract"
	"kycintake/pkg/logger"
)

// defaultPatterns is the built-in fallback used when no external blacklist
// resource is configured or readable.
var defaultPatterns = []string{
	"PO BOX",
	"BLACKLISTED ESTATE",
	"1234 FRAUD LANE",
}

// Blacklist holds normalized known-bad address patterns. It is loaded once at
// startup and can be hot-swapped via Reload without restarting the service.
type Blacklist struct {
	mu       sync.RWMutex
	path     string
	patterns []string
	logger   logger.Logger
}

// NewBlacklist loads patterns from the JSON file at path (a plain string
// array). A missing or unreadable file falls back to the built-in defaults.
func NewBlacklist(path string, log logger.Logger) *Blacklist {
	b := &Blacklist{
		path:   path,
		logger: log,
	}
	b.patterns = b.load()
	return b
}

// Reload re-reads the external resource, replacing the active pattern set.
func (b *Blacklist) Reload() {
	patterns := b.load()

	b.mu.Lock()
	b.patterns = patterns
	b.mu.Unlock()

	b.logger.Info("Address blacklist reloaded", map[string]interface{}{
		"path":     b.path,
		"patterns": len(patterns),
	})
}

func (b *Blacklist) load() []string {
	patterns := normalizePatterns(defaultPatterns)

	if b.path == "" {
		return patterns
	}

	raw, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			b.logger.Warn("Could not read address blacklist, using built-in defaults", map[string]interface{}{
				"path":  b.path,
				"error": err.Error(),
			})
		}
		return patterns
	}

	var loaded []string
	if err := json.Unmarshal(raw, &loaded); err != nil {
		b.logger.Warn("Could not parse address blacklist, using built-in defaults", map[string]interface{}{
			"path":  b.path,
			"error": err.Error(),
		})
		return patterns
	}

	if len(loaded) > 0 {
		patterns = normalizePatterns(loaded)
	}
	return patterns
}

func normalizePatterns(raw []string) []string {
	patterns := make([]string, 0, len(raw))
	for _, p := range raw {
		if normalized := strings.ToLower(extract.Normalize(p)); normalized != "" {
			patterns = append(patterns, normalized)
		}
	}
	return patterns
}

// Contains reports whether the normalized address matches any blacklist
// pattern by substring. Normalization on both sides makes the comparison
// insensitive to spacing and case variance introduced by OCR noise.
func (b *Blacklist) Contains(address string) bool {
	if address == "" {
		return false
	}
	normalized := strings.ToLower(extract.Normalize(address))

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, pattern := range b.patterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}
