package fileid

import (
	"context"
	"fmt"
)

// Dispatcher routes host-delivered events to the FIM operation that
// implements them. The action-to-operation mapping is fixed; unknown
// actions are silently ignored, since the host may emit event kinds this
// FIM has no opinion about.
type Dispatcher struct {
	manager Manager
}

// NewDispatcher wraps manager for event-driven use.
func NewDispatcher(manager Manager) *Dispatcher {
	return &Dispatcher{manager: manager}
}

// Handle routes ev to the appropriate Manager operation:
//
//	get    -> ignored
//	save   -> Save(ev.Path)
//	rename -> Move(ev.SourcePath, ev.Path)
//	copy   -> Copy(ev.SourcePath, ev.Path)
//	delete -> Delete(ev.Path)
//
// Any other action returns nil without calling the manager.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	switch ev.Action {
	case "get":
		return nil

	case "save":
		if err := d.manager.Save(ctx, ev.Path); err != nil {
			return fmt.Errorf("dispatch save: %w", err)
		}

	case "rename":
		if _, err := d.manager.Move(ctx, ev.SourcePath, ev.Path); err != nil {
			return fmt.Errorf("dispatch rename: %w", err)
		}

	case "copy":
		if _, err := d.manager.Copy(ctx, ev.SourcePath, ev.Path); err != nil {
			return fmt.Errorf("dispatch copy: %w", err)
		}

	case "delete":
		if err := d.manager.Delete(ctx, ev.Path); err != nil {
			return fmt.Errorf("dispatch delete: %w", err)
		}
	}

	return nil
}
