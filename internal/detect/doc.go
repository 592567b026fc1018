// Package detect talks to the object detection inference service.
//
// The model is chosen by the first letter of the work ID: M selects the
// content moderation model, P the payment card and plate model. Each model
// reports its own label vocabulary; Variant.PersistedClass maps those labels
// onto the counters stored with a work order.
package detect
