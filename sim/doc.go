// Package sim provides the core discrete-event simulation engine for iot-sim.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - event.go / event_queue.go: Event types and the pending-event heap ordered by (time, priority, insertion)
//   - simulator.go: The event loop, the horizon cut-off and process bookkeeping
//   - process.go: Cooperative processes and the Waitable suspension points (Timeout, Until, *Request)
//   - resource.go / request.go: Capacity-bounded priority pools and the request handle lifecycle
//
// # Execution Model
//
// Each process body runs on its own goroutine, but only one of the engine
// loop or a single process holds the execution token at a time. A process
// gives the token back whenever it calls Process.Wait, so model code reads
// sequentially (acquire, hold, release) while the run stays deterministic.
//
// When the horizon cuts a run short, every process still alive is abandoned:
// its goroutine exits through runtime.Goexit, so deferred Request.Release
// calls return held slots and withdraw queued requests.
//
// # Sub-packages
//
//   - sim/iot/: The IoT gateway/cloud model (arrivals, routing policies, devices, scenario config)
//   - sim/metrics/: Latency records, distributions and Prometheus export
//   - sim/trace/: Routing decision trace recording
//
// # Randomness
//
// rng.go partitions one master seed into per-subsystem streams, so adding a
// consumer of randomness never shifts the draws seen by another.
package sim
