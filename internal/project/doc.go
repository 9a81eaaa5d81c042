// Package project holds the project registry's domain model and service.
//
// Project Representation:
//
// Each project is a named record describing a data transformation:
//   - Name (unique, case-sensitive, primary key)
//   - SourceSchemaCount (number of source schemas feeding the project)
//   - TargetSchema (identifier of the produced schema)
//
// Service:
//
// The Service is the only path front ends use to read or change the
// registry. It is opened once per process and keeps the collection in
// memory in creation order:
//   - List: current projects, insertion order
//   - Create: validate, append, write through to the Store
//   - Get, Update, Delete: lookup and edit by name
//
// Front ends turn raw text into typed fields with ParseInput before
// calling Create or Update; invalid text never reaches the service.
//
// The Service does no locking. Callers serving concurrent requests must
// serialize access themselves.
package project
