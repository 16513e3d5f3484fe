package cachekey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyStrategy selects how a RequestContext is rendered into a key.
type KeyStrategy string

const (
	StrategySimple       KeyStrategy = "SIMPLE"
	StrategyHash         KeyStrategy = "HASH"
	StrategyHierarchical KeyStrategy = "HIERARCHICAL"
	StrategySemantic     KeyStrategy = "SEMANTIC"
)

// DefaultMaxKeyLength is the cap applied to every generated key before
// sanitize() falls back to a truncate-plus-digest scheme.
const DefaultMaxKeyLength = 250

// DefaultStrategy is used when a caller does not name one explicitly.
const DefaultStrategy = StrategyHierarchical

const timeWindow = 5 * 60 // seconds, 5-minute bucket for hierarchical keys

// Config configures a Generator.
type Config struct {
	// Prefix is prepended to every generated key. Defaults to "cache".
	Prefix string

	// MaxKeyLength caps the cleaned key length. Defaults to DefaultMaxKeyLength.
	MaxKeyLength int

	// ScopeByUser folds RequestContext.UserScope into hierarchical and
	// hash keys when true.
	ScopeByUser bool
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = "cache"
	}
	if c.MaxKeyLength <= 0 {
		c.MaxKeyLength = DefaultMaxKeyLength
	}
	return c
}

// Generator derives deterministic, collision-resistant keys from
// RequestContext values.
type Generator struct {
	cfg Config
}

// NewGenerator builds a Generator from cfg, applying defaults for any
// zero-valued fields.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg.withDefaults()}
}

// Key produces a cache key for ctx under strategy. An empty strategy uses
// DefaultStrategy.
func (g *Generator) Key(ctx RequestContext, strategy KeyStrategy) (string, error) {
	if ctx.EntityType == "" {
		return "", ErrEmptyEntityType
	}
	if strategy == "" {
		strategy = DefaultStrategy
	}

	var raw string
	switch strategy {
	case StrategySimple:
		raw = g.simpleKey(ctx)
	case StrategyHash:
		raw = g.hashKey(ctx)
	case StrategySemantic:
		raw = g.semanticKey(ctx)
	case StrategyHierarchical:
		raw = g.hierarchicalKey(ctx)
	default:
		raw = g.hierarchicalKey(ctx)
	}
	return sanitize(raw, g.cfg.MaxKeyLength), nil
}

// GlobForEntity returns the glob pattern matching every key for entity
// under this generator's prefix.
func (g *Generator) GlobForEntity(entity string) string {
	return fmt.Sprintf("%s:%s:*", g.cfg.Prefix, entity)
}

// TagIndexKey returns the key under which the tag's member set is stored.
func (g *Generator) TagIndexKey(tag string) string {
	return fmt.Sprintf("%s:tags:%s", g.cfg.Prefix, tag)
}

// EntityTypeFromKey extracts the entity-type segment from a key produced
// by this generator's prefix, or "" if the key is not well-formed.
func (g *Generator) EntityTypeFromKey(key string) string {
	prefix := g.cfg.Prefix + ":"
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	rest := key[len(prefix):]
	idx := strings.Index(rest, ":")
	if idx < 0 {
		return ""
	}
	return rest[:idx]
}

// --- SIMPLE ---

func (g *Generator) simpleKey(ctx RequestContext) string {
	params := ctx.paramMap()
	sig := g.paramSignature(params, 12)
	parts := []string{g.cfg.Prefix, ctx.EntityType, string(ctx.Verb), normalizeEndpoint(ctx.Endpoint)}
	if sig != "" {
		parts = append(parts, sig)
	}
	if ctx.Verb.IsWrite() && ctx.Payload != nil {
		body, err := canonicalize(ctx.Payload)
		if err == nil {
			parts = append(parts, hashBytes(body, 8))
		}
	}
	return strings.Join(parts, ":")
}

// --- HASH ---

func (g *Generator) hashKey(ctx RequestContext) string {
	canonicalCtx := map[string]any{
		"verb":     string(ctx.Verb),
		"endpoint": normalizeEndpoint(ctx.Endpoint),
		"entity":   ctx.EntityType,
		"params":   ctx.paramMap(),
	}
	if ctx.Verb.IsWrite() {
		canonicalCtx["payload"] = ctx.Payload
	}
	if g.cfg.ScopeByUser && ctx.UserScope != "" {
		canonicalCtx["userScope"] = ctx.UserScope
	}
	body, err := canonicalize(canonicalCtx)
	if err != nil {
		body = []byte(ctx.Endpoint)
	}
	return fmt.Sprintf("%s:%s:%s", g.cfg.Prefix, ctx.EntityType, hashBytes(body, 16))
}

// --- HIERARCHICAL (default) ---

func (g *Generator) hierarchicalKey(ctx RequestContext) string {
	normalized := normalizeEndpoint(ctx.Endpoint)
	seg1, seg2 := endpointSegments(normalized)

	parts := []string{g.cfg.Prefix, ctx.EntityType, string(ctx.Verb), seg1, seg2}

	if sig := g.paramSignature(ctx.paramMap(), 12); sig != "" {
		parts = append(parts, sig)
	}
	if ctx.Verb.IsWrite() && ctx.Payload != nil {
		if body, err := canonicalize(ctx.Payload); err == nil {
			parts = append(parts, "body", hashBytes(body, 8))
		}
	}
	if g.cfg.ScopeByUser && ctx.UserScope != "" {
		parts = append(parts, "user", shortHash(ctx.UserScope, 8))
	}
	if !ctx.Timestamp.IsZero() {
		window := ctx.Timestamp.Unix() / timeWindow
		parts = append(parts, "t", strconv.FormatInt(window, 10))
	}
	return strings.Join(parts, ":")
}

// --- SEMANTIC ---

func (g *Generator) semanticKey(ctx RequestContext) string {
	base := []string{g.cfg.Prefix, ctx.EntityType, string(ctx.Verb)}
	base = append(base, g.semanticTokens(ctx)...)
	return strings.Join(base, ":")
}

func (g *Generator) semanticTokens(ctx RequestContext) []string {
	params := ctx.paramMap()
	var tokens []string

	if _, ok := params["id"]; ok {
		tokens = append(tokens, "single")
	} else {
		tokens = append(tokens, "list")
	}
	if v, ok := firstPresent(params, "search", "q", "query"); ok && v != "" {
		tokens = append(tokens, "search")
	}
	if isFiltered(params) {
		tokens = append(tokens, "filtered")
	}
	if _, ok := firstPresent(params, "sort", "orderBy", "order_by"); ok {
		tokens = append(tokens, "sorted")
	}
	if n, ok := topN(params); ok {
		tokens = append(tokens, fmt.Sprintf("top%d", n))
	}
	if _, ok := firstPresent(params, "page", "offset", "cursor"); ok {
		tokens = append(tokens, "paged")
	}
	if _, ok := params["companyId"]; ok {
		tokens = append(tokens, "byCompany")
	}
	if v, ok := params["status"]; ok {
		tokens = append(tokens, fmt.Sprintf("status%s", hashScalar(v, 4)))
	}
	return tokens
}

func firstPresent(params map[string]any, names ...string) (any, bool) {
	for _, n := range names {
		if v, ok := params[n]; ok {
			return v, true
		}
	}
	return nil, false
}

// isFiltered reports whether params contain anything beyond identity,
// pagination, and sort controls — i.e. a genuine filter.
func isFiltered(params map[string]any) bool {
	structural := map[string]struct{}{
		"id": {}, "page": {}, "offset": {}, "cursor": {},
		"sort": {}, "orderBy": {}, "order_by": {}, "limit": {}, "top": {},
	}
	for k := range params {
		if _, skip := structural[k]; !skip {
			return true
		}
	}
	return false
}

func topN(params map[string]any) (int, bool) {
	v, ok := firstPresent(params, "limit", "top")
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func hashScalar(v any, n int) string {
	body, err := canonicalize(v)
	if err != nil {
		body = []byte(fmt.Sprintf("%v", v))
	}
	return hashBytes(body, n)
}

// paramSignature renders a deterministic n-char hash over the
// non-ignored, non-nil params, or "" if there are none.
func (g *Generator) paramSignature(params map[string]any, n int) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]any, len(params))
	for _, k := range keys {
		ordered[k] = params[k]
	}
	body, err := canonicalize(ordered)
	if err != nil {
		return ""
	}
	return hashBytes(body, n)
}
