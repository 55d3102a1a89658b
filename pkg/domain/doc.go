/*
Package domain contains the experience model shared by every other package.

It defines what an experience is (groups of steps with their actions and forms), how a
running instance is identified, how steps are addressed and the errors and analytics
events the engine produces. The package does no I/O.

# Key Entities

  - Experience: the immutable document loaded from a content source.
  - ExperienceData: one running instance, with its trigger, instance ID and form answers.
  - StepIndex and StepReference: two-level step addresses and relative references to them.
  - ExperienceError: a failure with a category and a recoverability flag.
  - Event: an analytics record with a name, timestamp and properties.
*/
package domain
