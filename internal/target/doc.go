// Package target turns loosely formatted URL input into a model.CanonicalURL.
//
// Accepted forms are "http://host/path", "https://host/path" and the
// schemeless "host/path". Normalization never fails: input outside this
// grammar still yields a CanonicalURL, and callers validate the result
// (for example, an empty hostname) before using it.
package target
