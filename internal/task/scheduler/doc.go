// Package scheduler is the top-level task scheduling service.
//
// It owns the task repository, the execution queue and three periodic
// triggers (due-task scan, queue drain, daily schedule optimization)
// registered on one cron runner with an explicit Start/Stop lifecycle.
//
// A due task flows through the pipeline:
//
//	pending --(due & conditions & constraints & deps & no-conflict)--> queued
//	queued --(drain)--> running --> completed | retrying | failed
//
// All task-set mutation is serialized by the service mutex; executing an
// action is the only step that happens outside the lock.
package scheduler
