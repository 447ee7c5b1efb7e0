package x11

import (
	"errors"
	"fmt"
	"log"
)

type cleanupStep struct {
	name string
	fn   func() error
}

// Cleanup collects release functions for server resources as they are
// created. Run releases them in reverse order; Release forgets them once the
// owner has taken over.
//
//	var cleanup x11.Cleanup
//	defer cleanup.Run()
//	... create resources, cleanup.Push(...) after each ...
//	cleanup.Release()
type Cleanup struct {
	steps []cleanupStep
}

// Push registers fn to undo the step called name.
func (c *Cleanup) Push(name string, fn func() error) {
	c.steps = append(c.steps, cleanupStep{name: name, fn: fn})
}

// Release drops every registered step without running it.
func (c *Cleanup) Release() {
	c.steps = nil
}

// Len returns the number of pending steps.
func (c *Cleanup) Len() int {
	return len(c.steps)
}

// Run executes pending steps newest first. A failing step is logged and does
// not stop the remaining ones; all failures are returned joined. Resources the
// server already freed with their window (IsTeardownRace) are not failures.
func (c *Cleanup) Run() error {
	var errs []error
	for i := len(c.steps) - 1; i >= 0; i-- {
		step := c.steps[i]
		if err := step.fn(); err != nil && !IsTeardownRace(err) {
			log.Printf("cleanup: %s: %v", step.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.name, err))
		}
	}
	c.steps = nil
	return errors.Join(errs...)
}
