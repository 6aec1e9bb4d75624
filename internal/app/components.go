package app

import (
	"github.com/ehving/noticesystem-sub000/internal/app/storage"
	"github.com/ehving/noticesystem-sub000/internal/conflict"
	"github.com/ehving/noticesystem-sub000/internal/entity"
	"github.com/ehving/noticesystem-sub000/internal/scheduler"
	"github.com/ehving/noticesystem-sub000/internal/sync"
	"github.com/ehving/noticesystem-sub000/internal/sync/attempt"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Storage owns the connections behind every other component.
	Storage storage.Factory

	// Registry maps entity types to their per-store accessors.
	Registry *entity.Registry

	// Coordinator fans changes out to the stores.
	Coordinator *sync.Coordinator

	// Attempts records and retries per-target attempts.
	Attempts *attempt.Log

	// Conflicts maintains conflict tickets.
	Conflicts *conflict.Manager

	// Detector runs batch detection over recent attempts.
	Detector *conflict.Detector

	// Scheduler drives the periodic jobs.
	Scheduler *scheduler.Scheduler
}

// Close releases the storage connections.
func (c *AppComponents) Close() {
	if c.Storage != nil {
		c.Storage.Cleanup()
	}
}
