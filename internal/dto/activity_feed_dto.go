package dto

// ActivityFeedRequest describes the paging of an actor's hub feed.
type ActivityFeedRequest struct {
	Page     int
	PageSize int
}

// ActivityFeedResponse wraps the activities visible to one actor.
type ActivityFeedResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
	ScopeSize  int                `json:"scope_size"`
	CacheHit   bool               `json:"cache_hit"`
}

// ActivityClearResponse reports how many activities were hidden by a clear.
type ActivityClearResponse struct {
	Dismissed int64 `json:"dismissed"`
}

// EcosystemResponse lists the identifiers reachable beneath a root actor.
type EcosystemResponse struct {
	Role     string   `json:"role"`
	RootID   string   `json:"root_id"`
	Members  []string `json:"members"`
	Size     int      `json:"size"`
	CacheHit bool     `json:"cache_hit"`
}
