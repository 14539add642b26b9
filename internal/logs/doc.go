// Package logs finds and reads the per-run log files the daemon and CLI
// write under log_dir.
//
// Run logs are named by logging.RunLogPath; List parses those names back into
// task, start time, and run id, and Latest picks the newest file for a task.
// Last and Follow read a file with bounded memory so `automerge logs -f` can
// stream a run while it is still writing.
package logs
