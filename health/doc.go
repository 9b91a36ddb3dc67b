// Package health reports whether the parts of a link (input, receiver, relay,
// NATS connection) are working.
//
// A Status is healthy, degraded or unhealthy. Error text placed in a status is
// sanitised so that addresses, paths and credentials do not leak through the
// /health endpoint. Monitor collects the latest status of each part and
// aggregates them: any unhealthy part makes the whole unhealthy, otherwise any
// degraded part makes it degraded.
package health
