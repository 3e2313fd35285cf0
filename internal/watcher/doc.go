// Package watcher turns a drop folder into a stream of processing attempts.
//
// A Monitor sweeps the folder once at start, subscribes to create and rename
// notifications through fsnotify, and health-checks the subscription on every
// refresh tick so a deleted or replaced folder is picked up again. Work is
// bounded by a semaphore shared between monitors, and a path already in
// flight is never scheduled twice.
package watcher
