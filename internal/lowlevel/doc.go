// File: internal/lowlevel/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Short-hold spin locks for the scheduling hot path. Critical sections
// guarded by these locks are bounded scans or single container operations;
// nothing blocks while holding them.
package lowlevel
