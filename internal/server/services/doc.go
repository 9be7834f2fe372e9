// Package services contains server-side business logic: the session protocol
// (login, refresh, bearer authorization), user provisioning and per-user blob
// storage.
package services
