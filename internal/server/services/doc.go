// Package services implements the API's use cases on top of the repositories
// and the blob store. Every method takes the caller's auth.Identity and only
// ever touches that caller's organisation.
package services
