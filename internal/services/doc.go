// package services defines interface StatsService for the Tautulli HTTP API
//
// All commands share a single envelope: GET {base}/api/v2?apikey=..&cmd=..
// returning {"response": {"result": ..., "data": ...}}.
package services
