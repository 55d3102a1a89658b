package runtime

import (
	"context"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/ports"
)

// sink delivers the events of one package to the machine. Events from a package the
// machine no longer owns are ignored.
type sink struct {
	machine *Machine
	pkg     ports.PresentationPackage
}

func (s *sink) ContainerDismissed(ctx context.Context) {
	s.machine.ContainerDismissed(ctx, s.pkg)
}

func (s *sink) ContainerNavigated(ctx context.Context, from, to int) {
	s.machine.ContainerNavigated(ctx, s.pkg, from, to)
}

// ContainerDismissed handles a dismissal initiated by the user.
func (m *Machine) ContainerDismissed(ctx context.Context, pkg ports.PresentationPackage) {
	_ = m.exec(ctx, func(ctx context.Context) error {
		current := m.State()
		if packageOf(current) != pkg {
			m.logger.Debug("ignoring dismissal from a stale package")
			return nil
		}
		switch current.(type) {
		case lifecycle.RenderingStep, lifecycle.Failing:
			return m.transition(ctx, lifecycle.EndExperience{MarkComplete: false})
		}
		return nil
	})
}

// ContainerNavigated handles a page change initiated by the container.
func (m *Machine) ContainerNavigated(ctx context.Context, pkg ports.PresentationPackage, from, to int) {
	_ = m.exec(ctx, func(ctx context.Context) error {
		st, ok := m.State().(lifecycle.RenderingStep)
		if !ok || st.Package != pkg || st.StepIndex.Item == to {
			return nil
		}

		flat := st.Experience.FlatIndex(domain.StepIndex{Group: st.StepIndex.Group, Item: to})
		err := m.transition(ctx, lifecycle.StartStep{Ref: domain.IndexRef(flat)})
		if err == nil {
			return nil
		}
		m.logger.Warn("container page change failed", "from", from, "to", to, "err", err)
		if _, still := m.State().(lifecycle.RenderingStep); still {
			return m.transition(ctx, lifecycle.EndExperience{MarkComplete: false})
		}
		return err
	})
}
