// Package domain defines the core business types for the IGNITE newsletter service.
//
// Types in this package are pure value objects. They are the shared language
// between handlers, services, and repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - Validation lives here, next to the type it protects
//   - Constants and enums belong here
//
// SubscriberName and SubscriberEmail follow the smart-constructor pattern:
// the only way to obtain a value is through its Parse function, so an invalid
// instance is unrepresentable everywhere downstream.
package domain
