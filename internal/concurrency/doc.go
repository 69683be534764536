// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker and maintenance loops of the runtime. One worker goroutine is
// bound to each CPU of the topology and, optionally, locked to an OS thread
// pinned to that CPU. Workers pull from the scheduler, drive device queues
// while only device work is pending, and park on their idle bit otherwise.
// The leader runs low-rate maintenance until its context ends.
package concurrency
