/*
Package node is a reference coordinator.

It answers POST /limit for the window named by the X-Window-Key header. A
call is admitted when current+cost fits in the limit, in which case the
counter grows by cost; otherwise the counter is left alone. The response is
the counter after the call and whether it was admitted.

Counters expire when their window resets. Replayed Idempotency-Key values
get the stored answer for that key instead of counting twice, which makes
the transport's single retry safe.

Three stores are provided:

  - MemoryStore: a single process, lost on restart
  - RedisStore: shared by several coordinator processes
  - SQLiteStore: a single process that survives restarts
*/
package node
