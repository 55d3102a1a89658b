/*
Package lantern is an experience lifecycle engine: it shows multi-step in-app experiences
(tours, modals, checklists), drives them through a strict state machine and reports what
happened to an analytics backend.

# Concept

An experience is a document of step groups. Each group is presented by one UI container
(a PresentationPackage) that pages through its steps. The engine owns one state machine per
render context, so a modal and any number of named embeds run independently while sharing a
single ordered action pipeline.

Steps declare actions keyed by trigger ("tap", "navigate", ...). Actions are plugins built
from a registry and executed one at a time; some rewrite the pipeline before they run
(conditional branches, form submission gates).

# Key Features

  - Strict lifecycle: every command is validated against the current state; invalid
    commands are rejected without side effects.
  - Recoverable failures: presentation errors marked with domain.Recoverable move the
    machine to a failing state that can be retried.
  - Pluggable UI: anything implementing ports.PresentationBuilder can present steps; the
    presentation.Headless builder renders markdown to a writer.
  - Observability: analytics events, Prometheus metrics and OpenTelemetry spans.

# Usage

	loader := file.NewLoader("./experiences")
	headless, _ := presentation.NewHeadless(os.Stdout)

	eng, err := lantern.New(
		lantern.WithLoader(loader),
		lantern.WithBuilder(headless),
		lantern.WithPublisher(memory.NewPublisher()),
	)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := eng.Show(ctx, "welcome-tour"); err != nil {
		log.Fatal(err)
	}
	_ = eng.StartStep(ctx, lantern.ModalContext, domain.OffsetRef(1))
	_ = eng.Dismiss(ctx, lantern.ModalContext, true)
*/
package lantern
