package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lantern/pkg/actions"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/lifecycle"
	"github.com/aretw0/lantern/pkg/ports"
)

// apply performs one step of the transition table and returns the command it chains to, if any.
// Must be called with mu held.
func (m *Machine) apply(ctx context.Context, action lifecycle.Action) (lifecycle.Action, error) {
	current := m.State()

	switch a := action.(type) {
	case lifecycle.StartExperience:
		switch st := current.(type) {
		case lifecycle.Idling:
			return m.startExperience(ctx, a.Experience)
		case lifecycle.Failing:
			m.abandon(ctx, st)
			return a, nil
		}
		return nil, m.reject(ctx, fmt.Errorf("%w: %s", lifecycle.ErrExperienceAlreadyActive, lifecycle.Describe(current)))

	case lifecycle.StartStep:
		if st, ok := current.(lifecycle.RenderingStep); ok {
			return m.startStep(ctx, st, a.Ref)
		}

	case lifecycle.RenderStep:
		if st, ok := current.(lifecycle.BeginningStep); ok {
			return m.renderStep(ctx, st)
		}

	case lifecycle.EndExperience:
		switch st := current.(type) {
		case lifecycle.RenderingStep:
			m.enter(ctx, lifecycle.EndingStep{Experience: st.Experience, StepIndex: st.StepIndex, Package: st.Package, MarkComplete: a.MarkComplete})
			m.dismiss(ctx, st.Experience, st.StepIndex, st.Package)
			m.enter(ctx, lifecycle.EndingExperience{Experience: st.Experience, StepIndex: st.StepIndex, MarkComplete: a.MarkComplete})
			return lifecycle.Reset{}, nil
		case lifecycle.Failing:
			m.abandon(ctx, st)
			return nil, nil
		}

	case lifecycle.Reset:
		switch st := current.(type) {
		case lifecycle.EndingExperience:
			m.teardown(ctx, st)
			m.enter(ctx, lifecycle.Idling{})
			return nil, nil
		case lifecycle.Idling:
			return nil, nil
		}

	case lifecycle.ReportError:
		switch current.(type) {
		case lifecycle.BeginningStep, lifecycle.RenderingStep:
			return m.reportError(ctx, current, a)
		}

	case lifecycle.Retry:
		if st, ok := current.(lifecycle.Failing); ok {
			return m.retry(ctx, st)
		}
	}

	return nil, m.reject(ctx, &lifecycle.NoTransitionError{From: current, Action: action})
}

func (m *Machine) startExperience(ctx context.Context, exp *domain.ExperienceData) (lifecycle.Action, error) {
	if exp == nil || exp.Experience == nil || exp.StepCount() == 0 {
		expErr := domain.NewExperienceError(domain.CategoryStructural, exp, domain.ErrEmptyExperience)
		m.publish(ctx, lifecycle.Result{Err: expErr})
		return nil, expErr
	}

	m.enter(ctx, lifecycle.BeginningExperience{Experience: exp})

	target := domain.InitialStepIndex
	if !exp.Trigger.IsQualification() {
		m.runNavigateActions(ctx, exp, target)
	}

	pkg, err := m.builder.Build(ctx, exp, target)
	if err != nil {
		return nil, m.fatal(ctx, domain.NewStepError(domain.CategoryPresentation, exp, target, err), nil)
	}
	m.attach(pkg)
	m.enter(ctx, lifecycle.BeginningStep{Experience: exp, StepIndex: target, Package: pkg, IsFirst: true})
	return lifecycle.RenderStep{}, nil
}

func (m *Machine) startStep(ctx context.Context, st lifecycle.RenderingStep, ref domain.StepReference) (lifecycle.Action, error) {
	exp := st.Experience
	target, err := ref.Resolve(exp.Experience, st.StepIndex)
	if err != nil {
		var resErr *domain.StepResolutionError
		if errors.As(err, &resErr) {
			switch resErr.Reason {
			case domain.ResolutionPastEnd:
				m.logger.Debug("step past end, completing experience", "experience_id", exp.ID)
				return lifecycle.EndExperience{MarkComplete: true}, nil
			case domain.ResolutionBeforeStart:
				m.logger.Debug("step before start, dismissing experience", "experience_id", exp.ID)
				return lifecycle.EndExperience{MarkComplete: false}, nil
			}
		}
		return nil, m.fatal(ctx, domain.NewStepError(domain.CategoryStructural, exp, st.StepIndex, err), st.Package)
	}

	if target.Group == st.StepIndex.Group {
		m.enter(ctx, lifecycle.EndingStep{Experience: exp, StepIndex: st.StepIndex, Package: st.Package, MarkComplete: true, Keep: true})
		if target.Item != st.Package.PageMonitor().CurrentPage() {
			if err := st.Package.Navigate(ctx, target.Item); err != nil {
				return nil, m.fatal(ctx, domain.NewStepError(domain.CategoryPresentation, exp, target, err), st.Package)
			}
		}
		m.enter(ctx, lifecycle.BeginningStep{Experience: exp, StepIndex: target, Package: st.Package})
		return lifecycle.RenderStep{}, nil
	}

	m.enter(ctx, lifecycle.EndingStep{Experience: exp, StepIndex: st.StepIndex, Package: st.Package, MarkComplete: true})
	m.runNavigateActions(ctx, exp, target)

	pkg, err := m.builder.Build(ctx, exp, target)
	if err != nil {
		return nil, m.fatal(ctx, domain.NewStepError(domain.CategoryPresentation, exp, target, err), st.Package)
	}
	m.dismiss(ctx, exp, st.StepIndex, st.Package)
	m.attach(pkg)
	m.enter(ctx, lifecycle.BeginningStep{Experience: exp, StepIndex: target, Package: pkg})
	return lifecycle.RenderStep{}, nil
}

func (m *Machine) renderStep(ctx context.Context, st lifecycle.BeginningStep) (lifecycle.Action, error) {
	if st.Package != m.presented {
		if err := st.Package.Present(ctx); err != nil {
			expErr := domain.NewStepError(domain.CategoryPresentation, st.Experience, st.StepIndex, err)
			if !expErr.Recoverable {
				return nil, m.fatal(ctx, expErr, st.Package)
			}
			return lifecycle.ReportError{
				Err: expErr,
				Retry: func(context.Context) (lifecycle.Action, error) {
					return lifecycle.RenderStep{}, nil
				},
			}, nil
		}
		m.presented = st.Package
	}

	m.enter(ctx, lifecycle.RenderingStep{
		Experience: st.Experience,
		StepIndex:  st.StepIndex,
		Package:    st.Package,
		IsFirst:    st.IsFirst,
	})
	return nil, nil
}

func (m *Machine) reportError(ctx context.Context, current lifecycle.State, a lifecycle.ReportError) (lifecycle.Action, error) {
	expErr := a.Err
	if expErr == nil {
		idx, _ := lifecycle.StepIndexOf(current)
		expErr = domain.NewStepError(domain.CategoryPresentation, lifecycle.ExperienceOf(current), idx, errors.New("unspecified failure"))
	}
	m.reported = expErr

	if a.Retry == nil {
		return nil, m.fatal(ctx, expErr, packageOf(current))
	}

	m.logger.Warn("experience failing", "err", expErr)
	m.publish(ctx, lifecycle.Result{Err: expErr})
	m.enter(ctx, lifecycle.Failing{Target: current, Retry: a.Retry})
	return nil, nil
}

func (m *Machine) retry(ctx context.Context, st lifecycle.Failing) (lifecycle.Action, error) {
	m.enter(ctx, st.Target)

	next, err := st.Retry(ctx)
	if err != nil {
		exp := lifecycle.ExperienceOf(st.Target)
		idx, _ := lifecycle.StepIndexOf(st.Target)
		return nil, m.fatal(ctx, domain.NewStepError(domain.CategoryPresentation, exp, idx, err), packageOf(st.Target))
	}
	return next, nil
}

// abandon ends a failed attempt without completing it.
func (m *Machine) abandon(ctx context.Context, st lifecycle.Failing) {
	exp := lifecycle.ExperienceOf(st.Target)
	idx, _ := lifecycle.StepIndexOf(st.Target)
	m.dismiss(ctx, exp, idx, packageOf(st.Target))

	ending := lifecycle.EndingExperience{Experience: exp, StepIndex: idx}
	m.enter(ctx, ending)
	m.teardown(ctx, ending)
	m.enter(ctx, lifecycle.Idling{})
}

// fatal reports expErr, tears the experience down and returns to idling, detaching all observers.
func (m *Machine) fatal(ctx context.Context, expErr *domain.ExperienceError, pkg ports.PresentationPackage) error {
	m.logger.Error("experience failed", "err", expErr)
	m.publish(ctx, lifecycle.Result{Err: expErr})

	var idx domain.StepIndex
	if expErr.StepIndex != nil {
		idx = *expErr.StepIndex
	}
	m.dismiss(ctx, expErr.Experience, idx, pkg)
	if expErr.Experience != nil {
		m.queue.Discard(ctx, expErr.Experience.InstanceID)
	}
	m.enter(ctx, lifecycle.Idling{})
	m.RemoveAllObservers()
	return expErr
}

// teardown discards the instance's queued actions and chains next content on completion.
func (m *Machine) teardown(ctx context.Context, st lifecycle.EndingExperience) {
	exp := st.Experience
	if exp == nil {
		return
	}
	m.queue.Discard(ctx, exp.InstanceID)

	if !st.MarkComplete || exp.NextContentID == "" || m.content == nil {
		return
	}
	contentID := exp.NextContentID
	trigger := domain.Trigger{Kind: domain.TriggerExperienceCompletion, FromExperienceID: exp.ID}
	published := exp.Published
	m.afterRelease(func() {
		if err := m.content.Load(ctx, contentID, published, trigger); err != nil {
			m.logger.Warn("next content failed to load", "content_id", contentID, "err", err)
		}
	})
}

// runNavigateActions runs the navigate actions of target's group. Outside the pipeline it
// waits for them; from inside the pipeline they run once the current action completes.
func (m *Machine) runNavigateActions(ctx context.Context, exp *domain.ExperienceData, target domain.StepIndex) {
	decls := exp.NavigateActions(target.Group)
	if len(decls) == 0 {
		return
	}
	done := m.queue.Enqueue(ctx, decls, m.actionContext(exp, target, domain.TriggerNavigate))
	if actions.InPipeline(ctx) {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("stopped waiting for navigate actions", "err", ctx.Err())
	}
}

// dismiss detaches and dismisses pkg. A failed dismissal is reported but does not stop the transition.
func (m *Machine) dismiss(ctx context.Context, exp *domain.ExperienceData, idx domain.StepIndex, pkg ports.PresentationPackage) {
	if pkg == nil {
		return
	}
	pkg.Attach(nil)
	if m.presented == pkg {
		m.presented = nil
	}
	if err := pkg.Dismiss(ctx); err != nil {
		expErr := domain.NewStepError(domain.CategoryPresentation, exp, idx, err)
		m.logger.Warn("dismiss failed", "err", expErr)
		m.publish(ctx, lifecycle.Result{Err: expErr})
	}
}

func (m *Machine) attach(pkg ports.PresentationPackage) {
	pkg.Attach(&sink{machine: m, pkg: pkg})
}

func packageOf(s lifecycle.State) ports.PresentationPackage {
	switch st := s.(type) {
	case lifecycle.BeginningStep:
		return st.Package
	case lifecycle.RenderingStep:
		return st.Package
	case lifecycle.EndingStep:
		return st.Package
	case lifecycle.Failing:
		return packageOf(st.Target)
	}
	return nil
}
