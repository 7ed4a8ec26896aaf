// Package binder decodes HTTP requests into typed structs.
//
// Each binder handles one source and one struct tag:
//
//	type ReportRequest struct {
//		Status string    `query:"status"`
//		From   time.Time `query:"from"`
//		PlanID string    `path:"planId"`
//	}
//
// JSON bodies use the standard `json` tags and are decoded strictly:
// unknown fields and trailing data are rejected.
package binder
