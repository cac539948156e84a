// Package billing provides the domain model for metered utility billing.
//
// This package implements the billing bounded context, which is responsible for:
//   - Turning a meter reading into a priced bill under the connection's tariff plan
//   - Driving the bill status lifecycle (DUE, PAID, OVERDUE) including the one-time late penalty
//   - Validating payments against the outstanding balance of a bill
//
// Key Aggregates:
//   - MeterReading: A reading of a connection's meter for one billing period
//   - Bill: The priced charge for one meter reading, with its payment state
//
// Entities and Value Objects:
//   - Connection and TariffPlan: Read-only records owned by external collaborators
//   - Payment: A single amount recorded against a bill
//   - BillingPeriod: Calendar month and year a reading and bill belong to
//
// Domain Services:
//   - TariffResolver: Selects the unique active tariff plan for a connection
//   - BillComposer: Prices a reading and produces a DUE bill
package billing
