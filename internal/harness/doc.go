// Package harness runs scripted scenarios against the fact store engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: unlock_door
//	description: "Buying a key opens the door"
//	spec: ../specs/quest.cue       # optional, relative to this file
//	history: true                  # optional, enables undo/redo
//	facts:                         # optional initial facts, no events
//	  - { key: gold, value: 150 }
//	steps:
//	  - { op: decrement, key: gold, by: 100 }
//	  - { op: set, key: has_key, value: true }
//	  - op: batch
//	    fail: "shop closed"           # roll the batch back
//	    steps:
//	      - { op: set, key: gold, value: 0 }
//	  - { op: check, condition: "has_key AND gold < 100", expect: true }
//	  - { op: set, key: "bad key", value: 1, error: "INVALID_KEY" }
//	assertions:
//	  - { type: fact, key: gold, value: 50 }
//	  - { type: missing, key: door_locked }
//	  - { type: check, condition: "can_enter", expect: true }
//	  - { type: event_count, key: gold, count: 1 }
//
// Step ops are set, delete, toggle, increment, decrement, set_many, clear,
// undo, redo, batch, and check. A step fails the scenario when it returns
// an unexpected error, when an expected error does not occur, or when its
// boolean outcome differs from expect.
//
// # Assertion Types
//
//   - fact: key holds value, with the same kind
//   - missing: key is absent
//   - check: condition evaluates to expect
//   - event_count: number of events delivered to global listeners for key
//     (every event when key is empty)
//
// # Determinism
//
// Every scenario runs on a fresh engine with a fixed transaction ID
// (testutil.FixedTxGenerator) and an in-memory backend, so the trace of
// delivered events is identical across runs and can be compared against
// goldie golden files with RunWithGolden.
package harness
