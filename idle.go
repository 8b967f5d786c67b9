package nio

// IsStale reports whether conn is no longer usable: already closed, or
// found closed by IsOpen going false between calls. This is additive
// tooling named in SPEC_FULL.md §4 ("idle-connection validation hook"),
// grounded on the teacher's own Session.IsClosed()/NumStreams()
// introspection helpers — a caller polling a keep-alive pool (itself out of
// this core's scope per §1) can use it to decide whether to evict a
// connection before reuse.
func IsStale(conn NonBlockingConnection) bool {
	return conn == nil || !conn.IsOpen()
}
