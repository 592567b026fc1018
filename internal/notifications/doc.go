// Package notifications talks to the upstream ordering service that owns
// work orders.
//
// Three callbacks exist: a pre-flight check before processing starts (the
// upstream may have cancelled the order), a completion call once the order is
// DONE that returns the recipient to notify, and an email request. Workflow
// code depends only on the Client interface; when no callback base URL is
// configured a no-op client is returned that always proceeds and never has a
// recipient.
package notifications
