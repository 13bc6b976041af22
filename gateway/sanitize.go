package gateway

import (
	"fmt"
	"strings"
	"sync"
)

// RedactedPlaceholder replaces the value of any recognized sensitive key.
const RedactedPlaceholder = "***REDACTED***"

// maxContextSizeBytes is the size above which a sanitized context is
// collapsed to just its key list (§4.X).
const maxContextSizeBytes = 1024

// defaultSensitiveKeys mirrors the Python implementation's frozenset of
// sensitive field names (market_gateway/_sensitive.py), including the
// CTP-specific broker_id/investor_id entries.
var defaultSensitiveKeys = map[string]struct{}{
	"password":      {},
	"passwd":        {},
	"pwd":           {},
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"secret":        {},
	"secret_key":    {},
	"api_key":       {},
	"apikey":        {},
	"credential":    {},
	"credentials":   {},
	"auth":          {},
	"authorization": {},
	"private_key":   {},
	"broker_id":     {},
	"investor_id":   {},
	"auth_code":     {},
	"app_id":        {},
}

// sensitiveKeyRegistry is a concurrency-safe, runtime-extensible set of
// sensitive key names, looked up on every context sanitization (§9
// "Sensitive-key registry").
type sensitiveKeyRegistry struct {
	mu      sync.RWMutex
	runtime map[string]struct{}
}

var globalSensitiveKeys = &sensitiveKeyRegistry{runtime: make(map[string]struct{})}

// AddSensitiveKey extends the sensitive-key set at runtime. The key is
// lower-cased before being stored, matching the case-insensitive lookup
// sanitizeContext performs.
func AddSensitiveKey(key string) {
	globalSensitiveKeys.mu.Lock()
	defer globalSensitiveKeys.mu.Unlock()
	globalSensitiveKeys.runtime[strings.ToLower(key)] = struct{}{}
}

func (r *sensitiveKeyRegistry) isSensitive(key string) bool {
	lower := strings.ToLower(key)
	if _, ok := defaultSensitiveKeys[lower]; ok {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.runtime[lower]
	return ok
}

// sanitizeContext produces a new map where every recognized sensitive key
// has its value replaced by RedactedPlaceholder, then collapses the
// result to a metadata-only map if its serialized size would exceed
// maxContextSizeBytes. The input is never mutated (§4.X, §9).
func sanitizeContext(context map[string]interface{}) map[string]interface{} {
	if len(context) == 0 {
		return map[string]interface{}{}
	}

	sanitized := make(map[string]interface{}, len(context))
	for k, v := range context {
		if globalSensitiveKeys.isSensitive(k) {
			sanitized[k] = RedactedPlaceholder
		} else {
			sanitized[k] = v
		}
	}

	size := estimateSize(sanitized)
	if size <= maxContextSizeBytes {
		return sanitized
	}

	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	return map[string]interface{}{
		"_truncated":     true,
		"_original_keys": keys,
		"_size_bytes":    size,
	}
}

// estimateSize approximates the serialized byte size of a context map,
// enough to enforce the 1 KiB cap without pulling in a JSON encoder just
// for sizing.
func estimateSize(m map[string]interface{}) int {
	total := 0
	for k, v := range m {
		total += len(k) + len(fmt.Sprintf("%v", v)) + 4
	}
	return total
}
