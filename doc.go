// Package sawyer exposes a Sawyer robot arm as a reinforcement-learning
// environment actuator.
//
// The arm itself is driven by robot middleware (joint control, motion
// validity checking); this module translates between that middleware's
// named, structured messages and the flat numeric observation/action
// vectors a policy works with.
//
// # Usage
//
// Describe your robot in sawyer.json (broker address, controlled joints,
// control mode, planning group), then:
//
//	sawyerctl reset       # move the arm to its start configuration
//	sawyerctl check       # ask the validity service about the current state
//	sawyerctl monitor     # live joint-angle chart
//	sawyerctl run         # launch a training run
//
// A simulated motion-validity service is available for development
// without a planning scene:
//
//	go run ./cmd/scene-sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/sawyerctl: CLI with run, monitor, reset and check commands
//   - cmd/scene-sim: simulated motion-validity service
//   - pkg/sawyer: the arm adapter (observations, commands, spaces, safety)
//   - pkg/intera: middleware client (joint state, commands, joint limits)
//   - pkg/motion: motion-validity service client
//   - pkg/miniarm: serial desk-arm backend for policy bring-up
//   - pkg/rl: environment, policy and training-loop boundary
//   - pkg/experiment: experiment runner (seeding, snapshots, progress log)
package sawyer
