// Package retention enforces the audit trail retention policy.
//
// The Pruner deletes records in two phases, first by age (RetentionDays)
// and then by count (MaxRecords), optionally archiving doomed records to
// JSON first. The Scheduler runs the pruner on a cron expression.
package retention
