package cache

// Stats holds cache performance metrics.
type Stats struct {
	Enabled       bool    `json:"enabled"`
	TTLMillis     int64   `json:"ttl_ms"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Evictions     int64   `json:"evictions"`
	Invalidations int64   `json:"invalidations"`
	StaleDrops    int64   `json:"stale_drops"`
	Sessions      int     `json:"sessions"`
	Entries       int     `json:"entries"`
	HitRate       float64 `json:"hit_rate"`
}
