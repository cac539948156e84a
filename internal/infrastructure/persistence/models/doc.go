// Package models contains GORM persistence models for the billing tables.
// Domain types stay free of ORM tags; each model converts to and from its
// domain counterpart with ToDomain and a ...ModelFromDomain constructor.
//
// Tables:
//   - connections, tariff_plans: read-only reference data owned by collaborators
//   - meter_readings: at most one unbilled row per (connection, period)
//   - bills: one row per meter reading
//   - payments: ledger rows, idempotency key unique when present
package models
