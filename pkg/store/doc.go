/*
Package store is the daemon's single-writer, multi-reader index of
observed containers, their resolved roles, the routes currently installed
for each target, and a warp-name secondary index (spec §4.5).

All state lives in memory; there is no persistence layer; restart means
the full container list is re-enumerated and the Store is rebuilt from
scratch, same as spec §9 describes for a cold start. Every exported method
takes the lock for its full body, so readers always observe a complete
update, never a half-applied one, and callers never see torn state across
the containers/role/installed/warp_by_name maps.
*/
package store
