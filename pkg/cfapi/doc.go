// Package cfapi converts structured events into the Log Insight ingestion
// API format.
//
// Encoding an event takes four steps:
//
//   - [Flatten] collapses nested objects into underscore-joined keys.
//   - [Adjustments.Apply] drops and renames fields by whole name.
//   - [Sanitize] strips characters outside [A-Za-z0-9_] from the names.
//   - [Encoder.Encode] reads @timestamp and message into the record header.
//
// [Frame] then wraps a batch of records as {"events": [...]}:
//
//	{"events": [
//	  {"timestamp": 123, "text": "foo",
//	   "fields": [{"name": "bar_baz", "content": "awesome"}]}
//	]}
package cfapi
