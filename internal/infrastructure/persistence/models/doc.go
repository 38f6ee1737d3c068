// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - authz.go: Subject mapping between modern users and legacy subjects
// - ordering.go: Order aggregate models (Order, OrderItem)
// - cutover.go: Cutover route model for strangler traffic shifting
//
// The legacy user_permissions table is deliberately absent here: it belongs
// to the monolith and is only read through the legacy gateway.
package models
