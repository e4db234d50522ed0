// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/xkilldash9x/cua-scheduler/api/schemas"
	"github.com/xkilldash9x/cua-scheduler/internal/browser"
)

// ComputerUseClient sends one turn to the remote planning/execution service.
type ComputerUseClient interface {
	Create(ctx context.Context, req schemas.ResponsesRequest) (*schemas.Response, error)
}

// Planner produces the optional human-readable plan logged before the loop.
type Planner interface {
	Plan(ctx context.Context, instruction string) (string, error)
}

// ActionInterpreter applies one action to a page. A returned error is a
// contained action failure, not a reason to stop the session.
type ActionInterpreter interface {
	Apply(ctx context.Context, page browser.Page, action schemas.Action) error
}

// FrameCapturer renders the current viewport as base64 text.
type FrameCapturer interface {
	Capture(ctx context.Context, page browser.Page) (string, error)
}

// Journal persists session and turn metadata. All methods are best effort
// from the driver's point of view.
type Journal interface {
	StartSession(ctx context.Context, rec schemas.SessionRecord) error
	RecordTurn(ctx context.Context, rec schemas.TurnRecord) error
	FinishSession(ctx context.Context, summary schemas.SessionSummary) error
}
