package ports

import (
	"context"

	"github.com/aretw0/lantern/pkg/domain"
)

// PresentationBuilder produces the package that presents the group containing a step.
// Implementations must be safe to call repeatedly and keep no state across calls.
type PresentationBuilder interface {
	Build(ctx context.Context, exp *domain.ExperienceData, idx domain.StepIndex) (PresentationPackage, error)
}

// PresentationPackage is the UI bundle for one step group.
// Errors wrapped with domain.Recoverable are retryable by the state machine.
type PresentationPackage interface {
	// Steps lists the steps presented by this package, in page order.
	Steps() []domain.Step

	// Present shows the container with its current page.
	Present(ctx context.Context) error

	// Dismiss removes the container. It returns once dismissal has completed.
	Dismiss(ctx context.Context) error

	// Navigate moves the container to another page of the same group.
	Navigate(ctx context.Context, page int) error

	// PageMonitor reports page changes initiated by the container itself (e.g. swipes).
	PageMonitor() PageMonitor

	// Attach installs the handler notified of container events. A nil handler detaches.
	// Packages must not retain anything else of the state machine.
	Attach(h ContainerEventHandler)
}

// PageMonitor is a stream of page changes within a package.
type PageMonitor interface {
	CurrentPage() int
	// AddObserver registers fn and returns a function that unregisters it.
	AddObserver(fn func(from, to int)) (remove func())
}

// ContainerEventHandler receives the only inbound events from the UI layer.
type ContainerEventHandler interface {
	// ContainerDismissed is called when the user dismissed the container.
	ContainerDismissed(ctx context.Context)
	// ContainerNavigated is called when the container changed page on its own.
	ContainerNavigated(ctx context.Context, from, to int)
}
