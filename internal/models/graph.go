package models

import (
	"fmt"
	"time"
)

// GraphEntity is a node in the domain graph / entity index (§3, C10).
type GraphEntity struct {
	ID          string                 `json:"id"`
	OwnerUserID string                 `json:"owner_user_id"`
	Type        string                 `json:"type"` // domain, email, ip_address, website, keyword, job, ...
	Value       string                 `json:"value"`
	Severity    Severity               `json:"severity,omitempty"`
	Metadata    map[string]interface{} `json:"metadata"`
	DiscoveredAt time.Time             `json:"discovered_at"`
}

// NaturalKey returns the (type, value, user) dedup key for this entity.
func (e *GraphEntity) NaturalKey() string {
	return fmt.Sprintf("%s|%s|%s", e.OwnerUserID, e.Type, e.Value)
}

// GraphEdge is a directed relation between two entities (§3, C10).
type GraphEdge struct {
	SourceEntityID string                 `json:"source_entity_id"`
	TargetEntityID string                 `json:"target_entity_id"`
	Relation       string                 `json:"relation"`
	Weight         float64                `json:"weight"`
	Metadata       map[string]interface{} `json:"metadata"`
	OwnerUserID    string                 `json:"owner_user_id"`
}

// Key returns the idempotency key for (source, target, relation).
func (e *GraphEdge) Key() string {
	return e.SourceEntityID + "->" + e.TargetEntityID + ":" + e.Relation
}

const (
	RelationResolvesTo     = "resolves_to"
	RelationContains       = "contains"
	RelationHosts          = "hosts"
	RelationDiscovered     = "discovered"
	RelationSearches       = "searches"
	RelationAssociatedWith = "associated_with"
)
