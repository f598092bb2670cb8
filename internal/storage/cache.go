package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CacheTier identifies one of the derived result caches.
type CacheTier string

const (
	// QueryCache holds direct query results.
	QueryCache CacheTier = "query"
	// RelatedCache holds related-node traversal results.
	RelatedCache CacheTier = "related"
	// PatternCache holds pattern match results.
	PatternCache CacheTier = "pattern"
)

// Tiers lists every cache tier in a stable order.
var Tiers = []CacheTier{QueryCache, RelatedCache, PatternCache}

// tableFor maps a tier to its table. The tier whitelist keeps table names
// out of caller control.
func tableFor(tier CacheTier) (string, error) {
	switch tier {
	case QueryCache:
		return "query_cache", nil
	case RelatedCache:
		return "related_cache", nil
	case PatternCache:
		return "pattern_cache", nil
	default:
		return "", fmt.Errorf("unknown cache tier: %s", tier)
	}
}

// Cache provides operations across the three result cache tiers.
type Cache struct {
	db *DB
}

// NewCache creates a cache over db.
func NewCache(db *DB) *Cache {
	return &Cache{db: db}
}

// Get retrieves a cached value. Expired entries are deleted on read and
// reported as missing.
func (c *Cache) Get(tier CacheTier, key string) (string, bool, error) {
	table, err := tableFor(tier)
	if err != nil {
		return "", false, err
	}

	var valueJSON, expiresAt string
	err = c.db.QueryRow(
		fmt.Sprintf("SELECT value_json, expires_at FROM %s WHERE key = ?", table), key,
	).Scan(&valueJSON, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s cache lookup failed: %w", tier, err)
	}

	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return "", false, fmt.Errorf("invalid expires_at format: %w", err)
	}
	if time.Now().After(expiry) {
		c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key) //nolint:errcheck // Best effort cleanup
		return "", false, nil
	}

	return valueJSON, true, nil
}

// Set stores a JSON-encoded value with a TTL.
func (c *Cache) Set(tier CacheTier, key, valueJSON string, ttl time.Duration) error {
	table, err := tableFor(tier)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = c.db.Exec(
		fmt.Sprintf("INSERT OR REPLACE INTO %s (key, value_json, expires_at, created_at) VALUES (?, ?, ?, ?)", table),
		key, valueJSON, now.Add(ttl).Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to set %s cache: %w", tier, err)
	}
	return nil
}

// InvalidateTier clears one tier wholesale, returning the number of
// entries removed.
func (c *Cache) InvalidateTier(tier CacheTier) (int, error) {
	table, err := tableFor(tier)
	if err != nil {
		return 0, err
	}

	res, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s", table)) // #nosec G201 //nolint:gosec // Table name from tier whitelist
	if err != nil {
		return 0, fmt.Errorf("failed to clear %s cache: %w", tier, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// CleanupExpired removes expired entries across all tiers.
func (c *Cache) CleanupExpired() (int, error) {
	cutoff := time.Now().Format(time.RFC3339)
	total := 0
	for _, tier := range Tiers {
		table, err := tableFor(tier)
		if err != nil {
			return total, err
		}
		res, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to clean %s cache: %w", tier, err)
		}
		n, _ := res.RowsAffected()
		total += int(n)
	}
	return total, nil
}

// TierStats describes one cache tier.
type TierStats struct {
	Tier    CacheTier `json:"tier"`
	Entries int       `json:"entries"`
}

// Stats returns entry counts per tier.
func (c *Cache) Stats() ([]TierStats, error) {
	stats := make([]TierStats, 0, len(Tiers))
	for _, tier := range Tiers {
		table, err := tableFor(tier)
		if err != nil {
			return nil, err
		}
		var count int
		if err := c.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s cache: %w", tier, err)
		}
		stats = append(stats, TierStats{Tier: tier, Entries: count})
	}
	return stats, nil
}
