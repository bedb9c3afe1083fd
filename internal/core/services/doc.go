// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - UploadCoordinator: the five-state upload machine
//   - IngestionTracker: read-only indexing status with bounded polling
//   - SearchGateway: cached plain/grounded search with degrade-to-plain
//   - CitationAggregator: deduplicated, capped, exportable citation set
//   - EvidenceService, SettingsService: thin listing and configuration services
//
// Services are pure Go with no CGO and talk to infrastructure only
// through ports.
package services
