/*
Package ports defines the driven ports (interfaces) of the experience engine.

These interfaces decouple the lifecycle core from the UI layer, content sources and analytics
sinks, allowing the engine to run headless in tests and CLIs or embedded in a real host.

# Key Interfaces

  - PresentationBuilder: Produces a PresentationPackage for a step group (UI layer).
  - PresentationPackage: Presents, dismisses and pages through the steps of one group.
  - ContainerEventHandler: Receives dismissal and paging notifications from a package.
  - ExperienceLoader: Retrieves experience documents by ID (file, memory, redis).
  - ContentLoader: Chain-loads follow-up content when an experience completes.
  - AnalyticsPublisher: Delivers lifecycle events and profile updates.
*/
package ports
